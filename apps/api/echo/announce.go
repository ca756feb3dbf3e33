package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/announce"
	"github.com/trezcool/shule/core/policy"
)

type announcementApi struct {
	auth *jwtAuth
	svc  *announce.Service
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *announce.Service) {
	api := announcementApi{auth: auth, svc: svc}

	ag := g.Group("", jwt)
	ag.GET("", api.query, auth.requireAction(policy.AnnouncementRead))
	ag.POST("", api.create, auth.requireAction(policy.AnnouncementWrite))

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, auth.requireAction(policy.AnnouncementRead))
	dg.PATCH("", api.update, auth.requireAction(policy.AnnouncementWrite))
	dg.DELETE("", api.destroy, auth.requireAction(policy.AnnouncementWrite))
}

func (api *announcementApi) create(ctx echo.Context) error {
	var data announce.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	caller := api.auth.getContextCaller(ctx)
	ann, err := api.svc.Create(ctx.Request().Context(), data, caller.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ann)
}

// query projects the board onto the caller's audience before any filtering.
func (api *announcementApi) query(ctx echo.Context) error {
	filter := new(announce.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []announce.Announcement{})
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, announcementOrderingFields); err != nil {
		return err
	}

	caller := api.auth.getContextCaller(ctx)
	anns, err := api.svc.QueryFor(ctx.Request().Context(), caller.Role, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, anns)
}

// retrieve returns 404 for announcements hidden by the audience projection;
// existence is never leaked as 403.
func (api *announcementApi) retrieve(ctx echo.Context) error {
	caller := api.auth.getContextCaller(ctx)
	ann, err := api.svc.GetFor(ctx.Request().Context(), ctx.Param("id"), caller.Role)
	if err != nil {
		if errors.Cause(err) == announce.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement")
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) update(ctx echo.Context) error {
	caller := api.auth.getContextCaller(ctx)
	ann, err := api.svc.GetFor(ctx.Request().Context(), ctx.Param("id"), caller.Role)
	if err != nil {
		if errors.Cause(err) == announce.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement")
	}

	var data announce.UpdateAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	ann, err = api.svc.Update(ctx.Request().Context(), ann, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ann)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == announce.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
