package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/school"
)

var errMissingStudentID = errors.New("student_id query parameter is required")

type attendanceApi struct {
	auth    *jwtAuth
	svc     *attendance.Service
	schools *school.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *attendance.Service, schools *school.Service) {
	api := attendanceApi{auth: auth, svc: svc, schools: schools}

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.AttendanceRead))
	ag.POST("", api.create, auth.requireAction(policy.AttendanceWrite))
	ag.GET("/student_history", api.studentHistory)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, auth.requireAction(policy.AttendanceRead))
	dg.PATCH("", api.update, auth.requireAction(policy.AttendanceWrite))
	dg.DELETE("", api.destroy, auth.requireAction(policy.AttendanceWrite))
}

func (api *attendanceApi) create(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	caller := api.auth.getContextCaller(ctx)
	rec, err := api.svc.Create(ctx.Request().Context(), data, caller.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, attendanceOrderingFields); err != nil {
		return err
	}

	recs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// studentHistory serves a student's records in descending date order. The
// gate admits Administrators, Teachers and the student themself.
func (api *attendanceApi) studentHistory(ctx echo.Context) error {
	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		return core.NewValidationError(errMissingStudentID,
			core.FieldError{Field: "student_id", Error: errMissingStudentID.Error()})
	}

	std, err := api.schools.GetStudent(ctx.Request().Context(), studentID)
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student")
	}
	if err = api.auth.allow(ctx, policy.AttendanceHistory, policy.Target{PersonID: std.UserID}); err != nil {
		return err
	}

	recs, err := api.svc.StudentHistory(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "loading attendance history")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.getRecord(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	rec, err := api.getRecord(ctx)
	if err != nil {
		return err
	}

	var data attendance.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	rec, err = api.svc.Update(ctx.Request().Context(), rec, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) getRecord(ctx echo.Context) (attendance.Record, error) {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return attendance.Record{}, errHttpNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance record")
	}
	return rec, nil
}
