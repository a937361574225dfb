package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core/reconcile"
)

type staffAttendanceApi struct {
	engine *reconcile.Engine
}

type StaffExcusedRequest struct {
	PersonID string `json:"person_id"`
	Date     string `json:"date"`
}

func registerStaffAttendanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, engine *reconcile.Engine) {
	api := staffAttendanceApi{engine: engine}

	sg := g.Group("/staff-attendance", append(authed, adminMiddleware())...)
	sg.GET("", api.query)
	sg.POST("", api.mark)
	sg.POST("/checkout", api.checkOut)
	sg.POST("/spravka", api.excuse)
}

func (api *staffAttendanceApi) query(ctx echo.Context) error {
	var filter reconcile.RecordFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to RecordFilter")
	}
	filter.Clean()
	records, err := api.engine.StaffRecords(getContextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying staff attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *staffAttendanceApi) mark(ctx echo.Context) error {
	var data reconcile.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	rec, err := api.engine.MarkStaffAttendance(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking staff attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *staffAttendanceApi) checkOut(ctx echo.Context) error {
	var data reconcile.CheckOutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckOutRequest")
	}
	rec, ok, err := api.engine.MarkStaffCheckOut(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "checking out")
	}
	return ctx.JSON(http.StatusOK, CheckOutResponse{Record: rec, CheckedOut: ok})
}

func (api *staffAttendanceApi) excuse(ctx echo.Context) error {
	var data StaffExcusedRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StaffExcusedRequest")
	}
	rec, err := api.engine.ProcessStaffExcusedAbsence(getContextScope(ctx), data.PersonID, data.Date)
	if err != nil {
		return errors.Wrap(err, "processing staff excused absence")
	}
	return ctx.JSON(http.StatusOK, rec)
}
