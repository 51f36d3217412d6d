package app

import "net/http"

type sessionKey string

const (
	SessionKeyUserId = sessionKey("userID")
)

func (s sessionKey) String() string {
	return string(s)
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(SessionKeyUserId).(int)
	if !ok {
		panic("missing user id from context")
	}

	return userId
}

// sessionUserId resolves the user behind the request's session cookie
// without going through LoadAndSave, so the websocket upgrade gets the
// server's own response writer.
func (app *Application) sessionUserId(r *http.Request) (int, error) {
	cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
	if err != nil {
		return 0, nil
	}

	ctx, err := app.sessionManager.Load(r.Context(), cookie.Value)
	if err != nil {
		return 0, err
	}

	return app.sessionManager.GetInt(ctx, SessionKeyUserId.String()), nil
}
