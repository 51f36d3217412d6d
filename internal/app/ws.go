package app

import (
	"net/http"
)

// RealtimeHandler upgrades an authenticated request to a websocket and
// serves it until the peer disconnects.
func (app *Application) RealtimeHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	userId, err := app.sessionUserId(r)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if userId == 0 {
		app.unauthorizedAccessResponse(w, r)
		return
	}

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.Warn("websocket upgrade failed", "user_id", userId, "error", err)
		return
	}

	app.hub.Serve(conn, userId)
}
