package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/metinatakli/seat-reservation/api"
	"github.com/riandyrn/otelchi"
)

const serviceName = "seat-reservation-api"

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	// The upgrade needs the server's own response writer, so it stays out
	// of LoadAndSave.
	r.Get("/ws", app.RealtimeHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)

		api.HandlerWithOptions(app, api.ChiServerOptions{
			BaseRouter:       r,
			Middlewares:      []api.MiddlewareFunc{app.authenticateOperation},
			ErrorHandlerFunc: app.badRequestResponse,
		})
	})

	return r
}

var _ api.ServerInterface = (*Application)(nil)
