package app

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

// ConnectionIDHeader carries the realtime connection a request was made
// from, so that connection is not echoed its own lock events.
const ConnectionIDHeader = "X-Connection-ID"

func (app *Application) LockSeatsHandler(w http.ResponseWriter, r *http.Request, showtimeID int) {
	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.LockSeatsRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	locks, err := app.locks.Acquire(r.Context(), showtimeID, input.SeatIds, app.holder(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.LockSeatsResponse{
		ShowtimeId: showtimeID,
		SeatIds:    make([]int, 0, len(locks)),
	}

	for _, l := range locks {
		resp.SeatIds = append(resp.SeatIds, l.SeatID)
		resp.LockedUntil = l.ExpiresAt
	}
	slices.Sort(resp.SeatIds)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseSeatsHandler(w http.ResponseWriter, r *http.Request, showtimeID int) {
	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.ReleaseSeatsRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	released, err := app.locks.Release(r.Context(), showtimeID, input.SeatIds, app.holder(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if released == nil {
		released = []int{}
	}

	resp := api.ReleaseSeatsResponse{
		ShowtimeId:      showtimeID,
		ReleasedSeatIds: released,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseAllSeatsHandler(w http.ResponseWriter, r *http.Request) {
	released, err := app.locks.ReleaseAll(r.Context(), app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.ReleaseAllSeatsResponse{ReleasedCount: len(released)}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) holder(r *http.Request) domain.Holder {
	return domain.Holder{
		UserID:       app.contextGetUserId(r),
		ConnectionID: r.Header.Get(ConnectionIDHeader),
	}
}
