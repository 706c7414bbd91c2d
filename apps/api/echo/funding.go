package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/user"
)

type fundingApi struct {
	svc    funding.Service
	usrSvc user.Service
}

func registerFundingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc funding.Service, usrSvc user.Service) {
	api := fundingApi{svc: svc, usrSvc: usrSvc}

	fg := g.Group("/funding-requests", jwt)
	fg.POST("", api.create)
	fg.GET("", api.query)
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update)
	fg.PUT("/:id/decision", api.decide, executiveMiddleware())
}

func (api *fundingApi) create(ctx echo.Context) error {
	var data funding.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *fundingApi) query(ctx echo.Context) error {
	filter := new(funding.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []funding.Request{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqs, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying funding requests")
	}
	if reqs == nil {
		reqs = []funding.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *fundingApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *fundingApi) update(ctx echo.Context) error {
	var data funding.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *fundingApi) decide(ctx echo.Context) error {
	var data funding.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Decide(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, req)
}
