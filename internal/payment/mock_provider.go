package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/metinatakli/seat-reservation/internal/domain"
)

// MockPaymentProvider stands in for Stripe when no secret key is configured.
// Outcomes for its sessions are expected on the payment events queue.
type MockPaymentProvider struct {
	successUrl string
}

func NewMockPaymentProvider(successUrl string) *MockPaymentProvider {
	return &MockPaymentProvider{
		successUrl: successUrl,
	}
}

func (m *MockPaymentProvider) CreateCheckoutSession(booking *domain.BookingDetail) (*domain.CheckoutSession, error) {
	id := "mock_" + uuid.New().String()

	return &domain.CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("%s?session_id=%s&booking_id=%d", m.successUrl, id, booking.ID),
	}, nil
}
