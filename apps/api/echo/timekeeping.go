package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core/dtr"
	"github.com/trezcool/classrecord/core/schedule"
)

type timekeepingApi struct {
	dtrSvc      *dtr.Service
	scheduleSvc *schedule.Service
	auth        *authenticator
	validate    *validator.Validate
}

func registerTimekeepingAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := timekeepingApi{
		dtrSvc:      s.deps.DTRSvc,
		scheduleSvc: s.deps.ScheduleSvc,
		auth:        s.auth,
		validate:    s.deps.Validate,
	}
	active := activeTeacherMiddleware(s.auth, s.deps.TeacherSvc)

	dg := g.Group("/dtr", jwt, active)
	dg.GET("", api.queryRecords)
	dg.POST("/punch", api.punch)

	sg := g.Group("/schedule", jwt, active)
	sg.GET("", api.week)
	sg.POST("", api.createEntry)
}

// Handlers

func (api *timekeepingApi) punch(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return err
	}
	res, err := api.dtrSvc.Punch(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "punching time record")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *timekeepingApi) queryRecords(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return err
	}
	records, err := api.dtrSvc.ListRecords(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "listing time records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *timekeepingApi) week(ctx echo.Context) error {
	days, err := api.scheduleSvc.Week(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing schedule")
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *timekeepingApi) createEntry(ctx echo.Context) error {
	var data schedule.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	e, err := api.scheduleSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule entry")
	}
	return ctx.JSON(http.StatusCreated, e)
}
