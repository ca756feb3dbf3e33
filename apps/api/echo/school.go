package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/school"
)

// Subjects

type subjectApi struct {
	auth *jwtAuth
	svc  *school.Service
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *school.Service) {
	api := subjectApi{auth: auth, svc: svc}

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.SubjectRead))
	ag.POST("", api.create, auth.requireAction(policy.SubjectWrite))

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, auth.requireAction(policy.SubjectRead))
	dg.PATCH("", api.update, auth.requireAction(policy.SubjectWrite))
	dg.DELETE("", api.destroy, auth.requireAction(policy.SubjectWrite))
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) query(ctx echo.Context) error {
	filter := new(school.SubjectFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Subject{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, subjectOrderingFields); err != nil {
		return err
	}

	subs, err := api.svc.QuerySubjects(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) update(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data.Name)
	if err != nil {
		if errors.Cause(err) == school.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classes

type classApi struct {
	auth *jwtAuth
	svc  *school.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *school.Service) {
	api := classApi{auth: auth, svc: svc}

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.ClassRead))
	ag.POST("", api.create, auth.requireAction(policy.ClassWrite))

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, auth.requireAction(policy.ClassRead))
	dg.PATCH("", api.update, auth.requireAction(policy.ClassWrite))
	dg.DELETE("", api.destroy, auth.requireAction(policy.ClassWrite))
	dg.POST("/enroll_students", api.enrollStudents)
}

func (api *classApi) create(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(school.ClassFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Class{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, classOrderingFields); err != nil {
		return err
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}

	cls, err = api.svc.UpdateClass(ctx.Request().Context(), cls, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// enrollStudents is open to Administrators and to the teacher who owns the
// class, so the policy check waits for the class to load.
func (api *classApi) enrollStudents(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	if err = api.auth.allow(ctx, policy.ClassEnroll, policy.Target{TeacherID: cls.TeacherID}); err != nil {
		return err
	}

	var data school.EnrollStudents
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollStudents")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	if err = api.svc.EnrollStudents(ctx.Request().Context(), cls.ID, data); err != nil {
		return err
	}

	cls, err = api.svc.GetClass(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "reloading class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) getClass(ctx echo.Context) (school.Class, error) {
	cls, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return school.Class{}, errHttpNotFound
		}
		return school.Class{}, errors.Wrap(err, "finding class")
	}
	return cls, nil
}

// Students

type studentApi struct {
	auth *jwtAuth
	svc  *school.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *school.Service) {
	api := studentApi{auth: auth, svc: svc}

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.StudentRead))
	ag.POST("", api.create, auth.requireAction(policy.StudentWrite))

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update, auth.requireAction(policy.StudentWrite))
	dg.DELETE("", api.destroy, auth.requireAction(policy.StudentWrite))
}

func (api *studentApi) create(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(school.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, studentOrderingFields); err != nil {
		return err
	}

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

// retrieve lets a student read their own profile; other callers go through
// the role gate.
func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	if err = api.auth.allow(ctx, policy.StudentRead, policy.Target{PersonID: std.UserID}); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	std, err = api.svc.UpdateStudent(ctx.Request().Context(), std, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) getStudent(ctx echo.Context) (school.Student, error) {
	std, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return school.Student{}, errHttpNotFound
		}
		return school.Student{}, errors.Wrap(err, "finding student")
	}
	return std, nil
}
