package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

// token types
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var contextUserKey = "user"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Role         string `json:"role,omitempty"`
	TokenType    string `json:"typ,omitempty"`
}

type jwtAuth struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

// middleware returns the echo JWT auth middleware. A well-formed bearer that
// is not an access token (a refresh token, typically) fails authentication
// instead of degrading to an anonymous caller.
func (a *jwtAuth) middleware() echo.MiddlewareFunc {
	return a.requireAccessToken(middleware.JWTWithConfig(a.config))
}

// optionalMiddleware parses a bearer token when one is present and lets
// anonymous requests through. Registration needs it: the endpoint is public
// during bootstrap but must still recognize an Administrator afterwards.
func (a *jwtAuth) optionalMiddleware() echo.MiddlewareFunc {
	config := a.config
	config.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return a.requireAccessToken(middleware.JWTWithConfig(config))
}

// requireAccessToken rejects any parsed bearer whose type claim is not
// "access". Requests the JWT middleware let through without a token are
// unaffected.
func (a *jwtAuth) requireAccessToken(jwtmw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtmw(func(ctx echo.Context) error {
			if claims, err := a.getContextClaims(ctx); err == nil && claims.TokenType != tokenTypeAccess {
				return errUnauthorized
			}
			return next(ctx)
		})
	}
}

func (a *jwtAuth) claims(usr user.User, tokenType string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	delta := a.conf.Server.JWTExpirationDelta
	if tokenType == tokenTypeRefresh {
		delta = a.conf.Server.JWTRefreshExpirationDelta
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(delta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Role:         usr.Role,
		TokenType:    tokenType,
	}
}

// generateToken signs the claims into a compact JWT string.
func (a *jwtAuth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// tokenPair issues the access and refresh tokens of a fresh login.
func (a *jwtAuth) tokenPair(usr user.User) (access, refresh string, err error) {
	if access, err = a.generateToken(a.claims(usr, tokenTypeAccess)); err != nil {
		return "", "", err
	}
	if refresh, err = a.generateToken(a.claims(usr, tokenTypeRefresh)); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// authenticate checks the credentials and returns the matching user.
func (a *jwtAuth) authenticate(ctx context.Context, uname, pwd string, svc *user.Service) (user.User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	return usr, nil
}

// refreshAccessToken verifies a refresh token string and issues a new access
// token for its subject. The original issue time is carried over so the
// refresh window is bounded.
func (a *jwtAuth) refreshAccessToken(ctx context.Context, refresh string, svc *user.Service) (string, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(refresh, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.config.SigningMethod {
			return nil, errors.New("unexpected signing method")
		}
		return a.config.SigningKey, nil
	})
	if err != nil || !token.Valid || claims.TokenType != tokenTypeRefresh {
		return "", errUnauthorized
	}

	usr, err := svc.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := a.claims(usr, tokenTypeAccess, claims.OrigIssuedAt)
	return a.generateToken(newClaims)
}

func (a *jwtAuth) getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(a.config.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextCaller maps the request claims to a policy caller. An anonymous
// request yields a zero caller.
func (a *jwtAuth) getContextCaller(ctx echo.Context) policy.Caller {
	claims, err := a.getContextClaims(ctx)
	if err != nil || claims.TokenType != tokenTypeAccess {
		return policy.Caller{}
	}
	return policy.Caller{ID: claims.Subject, Role: claims.Role, Authenticated: true}
}

func (a *jwtAuth) getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := a.getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
