package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core/casefile"
)

type caseFileApi struct {
	svc casefile.ServiceInterface
}

func registerCaseFileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc casefile.ServiceInterface) {
	api := caseFileApi{svc: svc}

	cg := g.Group("/cases", jwt, operatorMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.open)
	cg.GET("/:id", api.retrieve)
	cg.PATCH("/:id", api.update)
}

func (api *caseFileApi) query(ctx echo.Context) error {
	filter := new(casefile.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []casefile.CaseFile{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	cfs, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying case files")
	}
	if cfs == nil {
		cfs = []casefile.CaseFile{}
	}
	return ctx.JSON(http.StatusOK, cfs)
}

func (api *caseFileApi) open(ctx echo.Context) error {
	var data casefile.NewCaseFile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCaseFile")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cf, err := api.svc.Open(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "opening case file")
	}
	return ctx.JSON(http.StatusCreated, cf)
}

func (api *caseFileApi) retrieve(ctx echo.Context) error {
	cf, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding case file")
	}
	return ctx.JSON(http.StatusOK, cf)
}

func (api *caseFileApi) update(ctx echo.Context) error {
	var data casefile.UpdateCaseFile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCaseFile")
	}

	cf, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating case file")
	}
	return ctx.JSON(http.StatusOK, cf)
}
