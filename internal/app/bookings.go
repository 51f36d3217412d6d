package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request, showtimeID int) {
	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	var input api.CreateBookingRequest

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

	booking, err := app.bookings.Create(r.Context(), domain.BookingRequest{
		ShowtimeID:  showtimeID,
		SeatIDs:     input.SeatIds,
		UserID:      app.contextGetUserId(r),
		TotalAmount: input.TotalAmount,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	logger.Info("booking created", "booking_id", booking.ID, "showtime_id", showtimeID)

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request, bookingID int) {
	if bookingID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("booking ID must be greater than zero"))
		return
	}

	booking, err := app.bookings.Get(r.Context(), bookingID, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingsOfUserHandler(
	w http.ResponseWriter,
	r *http.Request,
	params api.GetBookingsOfUserHandlerParams) {

	err := app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	bookings, metadata, err := app.bookings.List(r.Context(), userId, toPagination(params))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.UserBookingsResponse{
		Bookings: toBookingSummaries(bookings),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request, bookingID int) {
	app.transitionBooking(w, r, bookingID, app.bookings.Cancel)
}

func (app *Application) ConfirmBookingHandler(w http.ResponseWriter, r *http.Request, bookingID int) {
	app.transitionBooking(w, r, bookingID, app.bookings.Confirm)
}

func (app *Application) transitionBooking(
	w http.ResponseWriter,
	r *http.Request,
	bookingID int,
	transition func(ctx context.Context, bookingID, userID int) (*domain.Booking, error)) {

	if bookingID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("booking ID must be greater than zero"))
		return
	}

	booking, err := transition(r.Context(), bookingID, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.BookingStatusResponse{
		Id:        booking.ID,
		Status:    api.BookingStatus(booking.Status),
		UpdatedAt: booking.UpdatedAt,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(booking *domain.BookingDetail) api.BookingResponse {
	resp := api.BookingResponse{
		Id:          booking.ID,
		Status:      api.BookingStatus(booking.Status),
		TotalAmount: booking.TotalAmount,
		Showtime: api.ShowtimeInfo{
			Id:          booking.Showtime.ID,
			MovieTitle:  booking.Showtime.MovieTitle,
			TheaterName: booking.Showtime.TheaterName,
			StartsAt:    booking.Showtime.StartsAt,
		},
		Seats:     make([]api.BookingSeat, len(booking.Seats)),
		Payments:  make([]api.Payment, len(booking.Payments)),
		CreatedAt: booking.CreatedAt,
		UpdatedAt: booking.UpdatedAt,
	}

	for i, seat := range booking.Seats {
		resp.Seats[i] = api.BookingSeat{
			Id:     seat.SeatID,
			Row:    seat.Row,
			Number: seat.Number,
			Class:  string(seat.Class),
		}
	}

	for i, p := range booking.Payments {
		resp.Payments[i] = api.Payment{
			Id:               p.ID,
			GatewayReference: p.GatewayReference,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Status:           string(p.Status),
			ErrorMessage:     p.ErrorMsg,
			CreatedAt:        p.CreatedAt,
		}
	}

	return resp
}

func toBookingSummaries(bookings []domain.BookingSummary) []api.BookingSummary {
	summaries := make([]api.BookingSummary, len(bookings))

	for i, v := range bookings {
		summary := &summaries[i]

		summary.Id = v.BookingID
		summary.Status = api.BookingStatus(v.Status)
		summary.MovieTitle = v.MovieTitle
		summary.TheaterName = v.TheaterName
		summary.StartsAt = v.StartsAt
		summary.TotalAmount = v.TotalAmount
		summary.SeatCount = v.SeatCount
		summary.CreatedAt = v.CreatedAt
	}

	return summaries
}

func toPagination(params api.GetBookingsOfUserHandlerParams) domain.Pagination {
	pagination := domain.Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if params.Page != nil {
		pagination.Page = *params.Page
	}
	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}

	return pagination
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}
