package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

const maxWebhookBytes = 65_536

func (app *Application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request, bookingID int) {
	if bookingID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("booking ID must be greater than zero"))
		return
	}

	checkoutSession, err := app.bookings.StartCheckout(r.Context(), bookingID, app.contextGetUserId(r))
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.CheckoutSessionResponse{
		RedirectUrl: checkoutSession.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// PaymentWebhookHandler settles bookings from gateway notifications. Outcomes
// that can never apply are acknowledged so the gateway stops redelivering
// them, while store outages answer 5xx to get a retry.
func (app *Application) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("webhook body could not be read"))
		return
	}

	outcome, err := app.webhookParser.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("rejected payment webhook", "error", err)
		app.badRequestResponse(w, r, err)
		return
	}

	if outcome == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	logger = logger.With("booking_id", outcome.BookingID, "outcome", outcome.Outcome)

	_, err = app.bookings.Settle(r.Context(), *outcome)
	switch {
	case err == nil:
		logger.Info("payment outcome settled")
	case domain.IsTerminal(err):
		logger.Warn("payment outcome could not be applied", "error", err)
	case errors.Is(err, domain.ErrTransientStore):
		app.serviceUnavailableResponse(w, r, err)
		return
	default:
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
