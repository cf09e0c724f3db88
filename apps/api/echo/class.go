package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/report"
	"github.com/trezcool/classrecord/core/roster"
)

type classApi struct {
	attendanceSvc *attendance.Service
	rosterSvc     *roster.Service
	exporter      *report.Exporter
	auth          *authenticator
	validate      *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := classApi{
		attendanceSvc: s.deps.AttendanceSvc,
		rosterSvc:     s.deps.RosterSvc,
		exporter:      s.deps.Exporter,
		auth:          s.auth,
		validate:      s.deps.Validate,
	}

	cg := g.Group("/classes", jwt, activeTeacherMiddleware(s.auth, s.deps.TeacherSvc))
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)

	// detail endpoints
	dg := cg.Group("/:classCode")
	dg.GET("", api.retrieveClass)
	dg.GET("/students", api.queryStudents)
	dg.POST("/students", api.addStudent)
	dg.PUT("/students/:id", api.updateStudent)

	dg.GET("/attendance", api.currentAttendance)
	dg.POST("/attendance", api.setStatus)
	dg.GET("/attendance/finalized", api.finalizedAttendance)
	dg.PUT("/period", api.setPeriod)
	dg.PUT("/totals", api.setTotals)
	dg.POST("/finalize", api.finalize)
	dg.POST("/reset", api.reset)

	dg.GET("/report", api.exportReport)
	dg.POST("/report/email", api.emailReport)
}

// Handlers

func (api *classApi) queryClasses(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return err
	}
	classes, err := api.rosterSvc.ListClasses(ctx.Request().Context(), claims.Email)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) createClass(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return err
	}
	var data roster.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	cls, err := api.rosterSvc.CreateClass(ctx.Request().Context(), claims.Email, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieveClass(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	cls, err := api.attendanceSvc.GetClass(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	students, err := api.rosterSvc.ListStudents(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudent(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data roster.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	st, err := api.rosterSvc.AddStudent(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *classApi) updateStudent(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data roster.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	st, err := api.rosterSvc.UpdateStudent(ctx.Request().Context(), sess, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *classApi) currentAttendance(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	agg, err := api.attendanceSvc.AggregateCurrentPeriod(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "aggregating current period")
	}
	return ctx.JSON(http.StatusOK, agg)
}

func (api *classApi) finalizedAttendance(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	agg, err := api.attendanceSvc.AggregateFinalizedByPeriod(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "aggregating finalized periods")
	}
	return ctx.JSON(http.StatusOK, agg)
}

func (api *classApi) setStatus(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data SetStatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatusRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	status, err := attendance.ParseStatus(data.Status)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	res, err := api.attendanceSvc.SetStatus(ctx.Request().Context(), sess, data.Name, status, data.Confirm)
	if err != nil {
		return errors.Wrap(err, "setting status")
	}
	if res.Outcome == attendance.ConfirmationRequired {
		return ctx.JSON(http.StatusConflict, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) setPeriod(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data PeriodRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PeriodRequest")
	}
	if err = api.attendanceSvc.SetPeriodLabel(ctx.Request().Context(), sess, data.Period); err != nil {
		return errors.Wrap(err, "setting period label")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Period has been set."})
}

func (api *classApi) setTotals(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data attendance.ClassTotalsUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassTotalsUpdate")
	}
	totals, err := api.attendanceSvc.SetClassTotals(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "setting class totals")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *classApi) finalize(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data FinalizeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FinalizeRequest")
	}
	if err = attendance.RequireConfirmation(data.Confirm); err != nil {
		return err
	}

	rep, err := api.attendanceSvc.FinalizePeriod(ctx.Request().Context(), sess, data.Period)
	if err != nil {
		return errors.Wrap(err, "finalizing period")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *classApi) reset(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data ConfirmRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmRequest")
	}
	if err = attendance.RequireConfirmation(data.Confirm); err != nil {
		return err
	}

	rep, err := api.attendanceSvc.ResetStatuses(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "resetting statuses")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *classApi) exportReport(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	kind, format, err := parseReportParams(ctx.QueryParam("kind"), ctx.QueryParam("format"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = api.exporter.Export(ctx.Request().Context(), sess, kind, format, &buf); err != nil {
		return errors.Wrap(err, "exporting report")
	}
	if format != report.FormatText {
		ctx.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", report.Filename(sess.ClassCode, format)))
	}
	return ctx.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (api *classApi) emailReport(ctx echo.Context) error {
	sess, err := api.auth.contextSession(ctx)
	if err != nil {
		return err
	}
	var data EmailReportRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailReportRequest")
	}
	kind, format, err := parseReportParams(data.Kind, data.Format)
	if err != nil {
		return err
	}
	to := data.To
	if core.CleanString(to) == "" {
		to = sess.Email
	}

	if err = api.exporter.Email(ctx.Request().Context(), sess, kind, format, to); err != nil {
		return errors.Wrap(err, "emailing report")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The report will arrive in your inbox shortly."})
}

func parseReportParams(kindParam, formatParam string) (report.Kind, report.Format, error) {
	var fldErrs []core.FieldError
	kind, err := report.ParseKind(kindParam)
	if err != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "kind", Error: err.Error()})
	}
	format, err := report.ParseFormat(formatParam)
	if err != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "format", Error: err.Error()})
	}
	if fldErrs != nil {
		return "", "", core.NewValidationError(nil, fldErrs...)
	}
	return kind, format, nil
}

type (
	SetStatusRequest struct {
		Name    string `json:"name" validate:"required,notblank"`
		Status  string `json:"status" validate:"required,attstatus"`
		Confirm bool   `json:"confirm"`
	}

	PeriodRequest struct {
		Period string `json:"period"`
	}

	FinalizeRequest struct {
		Period  string `json:"period"`
		Confirm bool   `json:"confirm"`
	}

	ConfirmRequest struct {
		Confirm bool `json:"confirm"`
	}

	EmailReportRequest struct {
		Kind   string `json:"kind"`
		Format string `json:"format"`
		To     string `json:"to"`
	}
)

func (sr *SetStatusRequest) Validate(validate *validator.Validate) error {
	sr.Name = core.CleanString(sr.Name)
	return validate.Struct(sr)
}
