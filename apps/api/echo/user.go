package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

type authApi struct {
	auth *jwtAuth
	svc  *user.Service
}

func registerAuthAPI(g *echo.Group, auth *jwtAuth, svc *user.Service) {
	api := authApi{auth: auth, svc: svc}

	g.POST("/login", api.login)
	g.POST("/refresh", api.refresh)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.auth.authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return err
	}
	access, refresh, err := api.auth.tokenPair(usr)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Access: access, Refresh: refresh})
}

func (api *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	access, err := api.auth.refreshAccessToken(ctx.Request().Context(), data.Refresh, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{Access: access})
}

type userApi struct {
	auth *jwtAuth
	svc  *user.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *user.Service) {
	api := userApi{auth: auth, svc: svc}

	// registration stays reachable without a token for bootstrap; the
	// handler decides, so the token is parsed only when one is sent
	g.POST("", api.create, auth.optionalMiddleware())

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.PersonList))

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, auth.requireAction(policy.PersonRead))
	dg.PATCH("", api.update, auth.requireAction(policy.PersonUpdate))
	dg.DELETE("", api.destroy, auth.requireAction(policy.PersonDelete))
	dg.POST("/change_password", api.changePassword)
}

// Handlers

// create handles open registration: it is reachable without a token while no
// Administrator exists or while the deployment keeps registration open, and
// always reachable for Administrators.
func (api *userApi) create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	adminExists, err := api.svc.AdminExists(reqCtx)
	if err != nil {
		return errors.Wrap(err, "checking for administrators")
	}
	if !policy.RegistrationOpen(api.auth.conf.Server.OpenRegistration, adminExists) {
		caller := api.auth.getContextCaller(ctx)
		if caller.Role != user.RoleAdmin {
			return errRegistrationClosed
		}
	}

	var data user.NewUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, userOrderingFields); err != nil {
		return err
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	usr, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr); err != nil {
		return err
	}

	usr, err = api.svc.Update(reqCtx, usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	usr, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	// Say No to Suicide! callers cannot delete themselves
	if caller := api.auth.getContextCaller(ctx); caller.ID == usr.ID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(reqCtx, usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	if err := api.auth.allow(ctx, policy.PersonChangePassword, policy.Target{PersonID: ctx.Param("id")}); err != nil {
		return err
	}

	usr, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(reqCtx, usr, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}

	RefreshRequest struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	RefreshResponse struct {
		Access string `json:"access"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func (rr *RefreshRequest) Validate() error {
	return core.Validate.Struct(rr)
}
