package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core/payment"
)

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *payment.Service, validate *validator.Validate) {
	api := paymentApi{svc: svc, validate: validate}

	g.GET("/payments", api.query, authed...)
	g.POST("/payments", api.create, append(authed, adminMiddleware())...)
	g.GET("/receipts", api.queryReceipts, authed...)
}

func (api *paymentApi) query(ctx echo.Context) error {
	var filter payment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	payments, err := api.svc.Query(getContextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) queryReceipts(ctx echo.Context) error {
	var filter payment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	receipts, err := api.svc.Receipts(getContextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	return ctx.JSON(http.StatusOK, receipts)
}

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, r, err := api.svc.Record(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Payment: p, Receipt: r})
}

type PaymentResponse struct {
	Payment payment.Payment `json:"payment"`
	Receipt payment.Receipt `json:"receipt"`
}
