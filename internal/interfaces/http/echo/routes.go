package echo

import (
	"net/http"

	e "github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

type Handlers struct {
	Imports     *ImportHandler
	Activations *ActivationHandler
	Members     *MemberHandler
}

// RegisterRoutes mounts the API. A nil activationLimiter leaves the public
// activation endpoint unthrottled.
func RegisterRoutes(server *e.Echo, h Handlers, activationLimiter *limiter.Limiter) {
	api := server.Group("/api/v1")

	api.POST("/imports/members/preview", h.Imports.Preview)
	api.POST("/imports/members/commit", h.Imports.Commit)
	api.GET("/imports", h.Imports.List)
	api.GET("/imports/:id", h.Imports.Get)
	api.GET("/imports/:id/errors", h.Imports.ExportErrors)
	api.GET("/imports/:id/source", h.Imports.DownloadSource)
	api.GET("/imports/:id/activation-stats", h.Activations.Stats)

	var throttle []e.MiddlewareFunc
	if activationLimiter != nil {
		throttle = append(throttle, e.WrapMiddleware(stdlib.NewMiddleware(activationLimiter).Handler))
	}
	api.POST("/activations/:token", h.Activations.Activate, throttle...)

	api.POST("/members/:id/activation/resend", h.Activations.Resend)
	api.GET("/members/:id", h.Members.GetMember)

	server.GET("/metrics", e.WrapHandler(promhttp.Handler()))
	server.GET("/healthz", func(c e.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
