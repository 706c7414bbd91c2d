package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/user"
)

type budgetApi struct {
	svc    budget.Service
	usrSvc user.Service
}

func registerBudgetAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc budget.Service, usrSvc user.Service) {
	api := budgetApi{svc: svc, usrSvc: usrSvc}

	// travel budget pools; management is executive-only
	bg := g.Group("/budgets", jwt)
	bg.GET("", api.queryPools)
	bg.GET("/:id", api.retrievePool)
	bg.GET("/:id/available", api.poolAvailable)
	bg.POST("", api.createPool, executiveMiddleware())
	bg.PUT("/:id", api.updatePool, executiveMiddleware())
	bg.DELETE("/:id", api.destroyPool, executiveMiddleware())

	// scholarship application periods
	pg := g.Group("/periods", jwt)
	pg.GET("", api.queryPeriods)
	pg.GET("/:id", api.retrievePeriod)
	pg.GET("/:id/available", api.periodAvailable)
	pg.POST("", api.createPeriod, executiveMiddleware())
	pg.PUT("/:id", api.updatePeriod, executiveMiddleware())
}

// Pool handlers

func (api *budgetApi) createPool(ctx echo.Context) error {
	var data budget.NewPool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPool")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	pool, err := api.svc.CreatePool(ctx.Request().Context(), actor, data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusCreated, pool)
}

func (api *budgetApi) queryPools(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pools, err := api.svc.QueryPools(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying budget pools")
	}
	if pools == nil {
		pools = []budget.Pool{}
	}
	return ctx.JSON(http.StatusOK, pools)
}

func (api *budgetApi) retrievePool(ctx echo.Context) error {
	pool, err := api.svc.GetPool(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, pool)
}

func (api *budgetApi) poolAvailable(ctx echo.Context) error {
	available, err := api.svc.PoolAvailable(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, AvailableResponse{Available: float64(available)})
}

func (api *budgetApi) updatePool(ctx echo.Context) error {
	var data budget.UpdatePool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePool")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	pool, err := api.svc.UpdatePool(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, pool)
}

func (api *budgetApi) destroyPool(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeletePool(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return trapDomainErr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Period handlers

func (api *budgetApi) createPeriod(ctx echo.Context) error {
	var data budget.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	period, err := api.svc.CreatePeriod(ctx.Request().Context(), actor, data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusCreated, period)
}

func (api *budgetApi) queryPeriods(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	periods, err := api.svc.QueryPeriods(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying application periods")
	}
	if periods == nil {
		periods = []budget.Period{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *budgetApi) retrievePeriod(ctx echo.Context) error {
	period, err := api.svc.GetPeriod(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, period)
}

func (api *budgetApi) periodAvailable(ctx echo.Context) error {
	cat := budget.Category(ctx.QueryParam("category"))
	if !cat.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown category")
	}
	available, err := api.svc.PeriodAvailable(ctx.Request().Context(), ctx.Param("id"), cat)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, AvailableResponse{Available: available})
}

func (api *budgetApi) updatePeriod(ctx echo.Context) error {
	var data budget.UpdatePeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePeriod")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	period, err := api.svc.UpdatePeriod(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return trapDomainErr(err)
	}
	return ctx.JSON(http.StatusOK, period)
}

type AvailableResponse struct {
	Available float64 `json:"available"`
}
