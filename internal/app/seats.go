package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

func (app *Application) GetSeatMapByShowtime(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	seatMap, err := app.seatRepo.GetSeatMap(r.Context(), showtimeID, time.Now())
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(seatMap), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(seatMap *domain.SeatMap) api.SeatMapResponse {
	return api.SeatMapResponse{
		ShowtimeId:  seatMap.Showtime.ID,
		MovieTitle:  seatMap.Showtime.MovieTitle,
		TheaterId:   seatMap.Showtime.TheaterID,
		TheaterName: seatMap.Showtime.TheaterName,
		StartsAt:    seatMap.Showtime.StartsAt,
		SeatRows:    toSeatRows(seatMap.Seats),
	}
}

func toSeatRows(seats []domain.SeatState) []api.SeatRow {
	// Seats are pre-sorted by row and number, so one pass groups them.
	seatRows := []api.SeatRow{}
	if len(seats) == 0 {
		return seatRows
	}

	currentRow := api.SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = api.SeatRow{Row: v.Row}
		}

		currentRow.Seats = append(currentRow.Seats, api.Seat{
			Id:          v.ID,
			Row:         v.Row,
			Number:      v.Number,
			Class:       string(v.Class),
			Status:      api.SeatStatus(v.Status),
			LockedBy:    v.LockedBy,
			LockedUntil: v.LockedUntil,
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
