package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core/attendance"
)

type attendanceApi struct {
	svc attendance.ServiceInterface
}

// daySheet is the body of PUT /attendance/:date.
type daySheet struct {
	Entries []attendance.Entry `json:"entries"`
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.ServiceInterface) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", jwt, operatorMiddleware())
	ag.GET("", api.query)
	ag.PUT("/:date", api.saveDay)

	g.GET("/students/:code/attendance", api.studentSummary, jwt, operatorMiddleware())
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}

	recs, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) saveDay(ctx echo.Context) error {
	var data daySheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to daySheet")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	recs, err := api.svc.SaveDay(ctx.Request().Context(), ctx.Param("date"), data.Entries, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) studentSummary(ctx echo.Context) error {
	sum, err := api.svc.StudentSummary(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}
