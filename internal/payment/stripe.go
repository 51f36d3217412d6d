package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const bookingIdKey = "booking_id"

var ErrInvalidWebhook = errors.New("invalid webhook payload")

type StripePaymentProvider struct {
	failureUrl    string
	successUrl    string
	webhookSecret string
}

func NewStripePaymentProvider(failureUrl, successUrl, webhookSecret string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl:    failureUrl,
		successUrl:    successUrl,
		webhookSecret: webhookSecret,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(booking *domain.BookingDetail) (*domain.CheckoutSession, error) {
	seatLabels := make([]string, len(booking.Seats))
	for i, seat := range booking.Seats {
		seatLabels[i] = fmt.Sprintf("Row %s Seat %d (%s)", seat.Row, seat.Number, seat.Class)
	}

	priceCents := booking.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart()

	lineItem := &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(priceCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(fmt.Sprintf("%s - %d seat(s)", booking.Showtime.MovieTitle, len(booking.Seats))),
				Description: stripe.String(fmt.Sprintf(
					"Theater: %s • Showtime: %s • Seats: %s",
					booking.Showtime.TheaterName,
					booking.Showtime.StartsAt.Format("Jan 2, 2006 15:04"),
					strings.Join(seatLabels, ", "),
				)),
			},
		},
		Quantity: stripe.Int64(1),
	}

	metadata := map[string]string{
		bookingIdKey: strconv.Itoa(booking.ID),
		"user_id":    strconv.Itoa(booking.UserID),
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  []*stripe.CheckoutSessionLineItemParams{lineItem},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata:   metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		ClientReferenceID: stripe.String(strconv.Itoa(booking.ID)),
	}

	checkout, err := session.New(params)
	if err != nil {
		return nil, err
	}

	return &domain.CheckoutSession{
		ID:  checkout.ID,
		URL: checkout.URL,
	}, nil
}

// ParseWebhook verifies the signature of a Stripe event and maps it to a
// payment outcome. Events that carry no outcome yield nil.
func (s *StripePaymentProvider) ParseWebhook(payload []byte, signature string) (*domain.PaymentOutcome, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	return outcomeFromEvent(event)
}

func outcomeFromEvent(event stripe.Event) (*domain.PaymentOutcome, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:

		var checkout stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
		}

		// Delayed payment methods complete the session before the money arrives.
		if checkout.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return nil, nil
		}

		return checkoutOutcome(&checkout, domain.PaymentSucceeded, "")

	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:

		var checkout stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
		}

		return checkoutOutcome(&checkout, domain.PaymentFailed, string(event.Type))

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
		}

		// Partial refunds leave the booking paid.
		if !charge.Refunded {
			return nil, nil
		}

		bookingID, err := bookingIdFromMetadata(charge.Metadata)
		if err != nil {
			return nil, err
		}

		reference := charge.ID
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			reference = charge.PaymentIntent.ID
		}

		return &domain.PaymentOutcome{
			BookingID:        bookingID,
			GatewayReference: reference,
			Outcome:          domain.PaymentRefunded,
			Reason:           "charge refunded",
		}, nil

	default:
		return nil, nil
	}
}

func checkoutOutcome(
	checkout *stripe.CheckoutSession,
	outcome domain.PaymentOutcomeKind,
	reason string) (*domain.PaymentOutcome, error) {

	bookingID, err := bookingIdFromMetadata(checkout.Metadata)
	if err != nil {
		return nil, err
	}

	result := &domain.PaymentOutcome{
		BookingID:        bookingID,
		GatewayReference: checkout.ID,
		Outcome:          outcome,
		Reason:           reason,
	}

	if outcome == domain.PaymentSucceeded && checkout.PaymentIntent != nil {
		result.PaymentIntent = checkout.PaymentIntent.ID
	}

	return result, nil
}

func bookingIdFromMetadata(metadata map[string]string) (int, error) {
	bookingID, err := strconv.Atoi(metadata[bookingIdKey])
	if err != nil || bookingID < 1 {
		return 0, fmt.Errorf("%w: missing %s metadata", ErrInvalidWebhook, bookingIdKey)
	}

	return bookingID, nil
}
