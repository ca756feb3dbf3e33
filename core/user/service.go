package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrRoleLocked     = errors.New("role cannot change while dependent records reference this user")
	ErrWrongPassword  = errors.New("wrong password")
)

type (
	GetFilter struct {
		ID              string
		Username        string
		UsernameOrEmail string
	}

	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser removes the user and cascades to their student profile,
		// enrollments, attendance records, authored announcements and taught
		// classes, atomically.
		DeleteUser(ctx context.Context, id string) error
		// AdminExists reports whether at least one Administrator is stored.
		AdminExists(ctx context.Context) (bool, error)
		// HasRoleDependents reports whether dependent rows (student profile,
		// taught classes, recorded attendance, authored announcements)
		// reference this user through its role.
		HasRoleDependents(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo Repository
		mail core.EmailService
		conf *core.Config
	}
)

func NewService(repo Repository, mail core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mail: mail, conf: conf}
}

func (svc *Service) Repo() Repository { return svc.repo }

func (svc *Service) checkUniqueness(ctx context.Context, uname string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclUsers...); err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return core.NewConflictError(err)
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Username); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Update applies uu on top of the stored user. A role change is rejected
// while dependent records still reference the user.
func (svc *Service) Update(ctx context.Context, origUsr User, uu UpdateUser) (User, error) {
	if uu.Username != origUsr.Username {
		if err := svc.checkUniqueness(ctx, uu.Username, origUsr); err != nil {
			return User{}, err
		}
	}

	if uu.Role != origUsr.Role {
		locked, err := svc.repo.HasRoleDependents(ctx, origUsr.ID)
		if err != nil {
			return User{}, err
		}
		if locked {
			return User{}, core.NewConflictError(ErrRoleLocked)
		}
	}

	usr := origUsr
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Role = uu.Role
	if uu.FirstName != nil {
		usr.FirstName = core.CleanString(*uu.FirstName)
	}
	if uu.LastName != nil {
		usr.LastName = core.CleanString(*uu.LastName)
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// ChangePassword verifies the old password before setting the new one.
// A mismatch surfaces as a field error on old_password.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(ErrWrongPassword,
			core.FieldError{Field: "old_password", Error: ErrWrongPassword.Error()})
	}
	return svc.SetPassword(ctx, usr, cp.NewPassword)
}

// SetPassword sets a new password unconditionally (admin tooling).
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) error {
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	svc.sendPasswordChangedEmail(usr)
	return nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *Service) AdminExists(ctx context.Context) (bool, error) {
	return svc.repo.AdminExists(ctx)
}

func (svc *Service) sendWelcomeEmail(usr User) {
	if svc.mail == nil || usr.Email == "" {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYour %s account %q has been created.\n\nSign in at %s",
			usr.FullName(), svc.conf.AppName, usr.Username, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *Service) sendPasswordChangedEmail(usr User) {
	if svc.mail == nil || usr.Email == "" {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Your password was changed",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nThe password of your %s account was just changed. "+
				"If this was not you, contact an administrator immediately.",
			usr.FullName(), svc.conf.AppName,
		),
	})
}
