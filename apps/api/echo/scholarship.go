package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
)

type scholarshipApi struct {
	svc    scholarship.Service
	usrSvc user.Service
}

func registerScholarshipAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc scholarship.Service, usrSvc user.Service) {
	api := scholarshipApi{svc: svc, usrSvc: usrSvc}

	sg := g.Group("/scholarships", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.PUT("/:id/endorsement", api.endorse, staffMiddleware())
	sg.PUT("/:id/decision", api.decide, executiveMiddleware())
}

func (api *scholarshipApi) create(ctx echo.Context) error {
	var data scholarship.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *scholarshipApi) query(ctx echo.Context) error {
	filter := new(scholarship.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []scholarship.Application{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	apps, err := api.svc.Query(ctx.Request().Context(), actor, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying scholarship applications")
	}
	if apps == nil {
		apps = []scholarship.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *scholarshipApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *scholarshipApi) update(ctx echo.Context) error {
	var data scholarship.UpdateApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateApplication")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *scholarshipApi) endorse(ctx echo.Context) error {
	var data EndorsementRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EndorsementRequest")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Endorse(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *scholarshipApi) decide(ctx echo.Context) error {
	var data scholarship.Decision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Decide(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, app)
}

type EndorsementRequest struct {
	Status scholarship.Status `json:"status"`
}
