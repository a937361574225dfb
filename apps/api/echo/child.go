package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core/child"
)

type childApi struct {
	svc      *child.Service
	validate *validator.Validate
}

func registerChildAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *child.Service, validate *validator.Validate) {
	api := childApi{svc: svc, validate: validate}

	cg := g.Group("/children", authed...)
	cg.GET("", api.query)
	cg.GET("/groups", api.queryGroups)
	cg.POST("", api.create, adminMiddleware())

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, adminMiddleware())
	cg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *childApi) query(ctx echo.Context) error {
	var filter child.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	children, err := api.svc.Query(getContextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *childApi) queryGroups(ctx echo.Context) error {
	groups, err := api.svc.Groups(getContextScope(ctx))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *childApi) create(ctx echo.Context) error {
	var data child.NewChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(getContextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating child")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(getContextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding child by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *childApi) update(ctx echo.Context) error {
	var data child.UpdateChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(getContextScope(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, c)
}

// destroy deactivates the child. Its attendance and payment history is kept.
func (api *childApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Deactivate(getContextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating child")
	}
	return ctx.NoContent(http.StatusNoContent)
}
