package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/attendance"
	"github.com/trezcool/davomat/core/reconcile"
)

type attendanceApi struct {
	engine *reconcile.Engine
}

func registerAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, engine *reconcile.Engine) {
	api := attendanceApi{engine: engine}

	ag := g.Group("/attendance", authed...)
	ag.GET("", api.day)
	ag.GET("/records", api.query)
	ag.POST("", api.mark)
	ag.POST("/checkout", api.checkOut)
	ag.POST("/spravka", api.excuse)
}

// day reports the attendance of the visible children. The date defaults to today.
func (api *attendanceApi) day(ctx echo.Context) error {
	date := core.CleanString(ctx.QueryParam("date"))
	if date == "" {
		date = api.engine.Today()
	}
	report, err := api.engine.Day(getContextScope(ctx), date)
	if err != nil {
		return errors.Wrap(err, "reporting day")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var filter reconcile.RecordFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to RecordFilter")
	}
	filter.Clean()
	records, err := api.engine.Records(getContextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data reconcile.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	rec, err := api.engine.MarkAttendance(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) checkOut(ctx echo.Context) error {
	var data reconcile.CheckOutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckOutRequest")
	}
	rec, ok, err := api.engine.MarkCheckOut(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "checking out")
	}
	return ctx.JSON(http.StatusOK, CheckOutResponse{Record: rec, CheckedOut: ok})
}

func (api *attendanceApi) excuse(ctx echo.Context) error {
	var data reconcile.ExcusedRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExcusedRequest")
	}
	res, err := api.engine.ProcessExcusedAbsence(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "processing excused absence")
	}
	return ctx.JSON(http.StatusOK, res)
}

type CheckOutResponse struct {
	Record     attendance.Record `json:"record"`
	CheckedOut bool              `json:"checked_out"`
}
