package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/metinatakli/seat-reservation/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSettler struct {
	mock.Mock
}

func (m *mockSettler) Settle(ctx context.Context, outcome domain.PaymentOutcome) (*domain.Booking, error) {
	args := m.Called(ctx, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	record *ackRecord
}

func (f fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.record.acked = true
	return nil
}

func (f fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.record.nacked = true
	f.record.requeue = requeue
	return nil
}

func (f fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestHandleDelivery(t *testing.T) {
	succeeded := domain.PaymentOutcome{BookingID: 11, GatewayReference: "cs_1", Outcome: domain.PaymentSucceeded}

	tests := []struct {
		name        string
		body        string
		redelivered bool
		settleErr   error
		wantSettle  bool
		want        ackRecord
	}{
		{
			name: "should dead letter a malformed body",
			body: `{"bookingId":`,
			want: ackRecord{nacked: true},
		},
		{
			name: "should dead letter an unknown outcome",
			body: `{"bookingId":11,"gatewayReference":"cs_1","outcome":"chargeback"}`,
			want: ackRecord{nacked: true},
		},
		{
			name: "should dead letter a refund that names no payment",
			body: `{"bookingId":11,"outcome":"refunded"}`,
			want: ackRecord{nacked: true},
		},
		{
			name: "should dead letter a success without gateway reference",
			body: `{"bookingId":11,"outcome":"succeeded"}`,
			want: ackRecord{nacked: true},
		},
		{
			name:       "should ack an applied outcome",
			body:       `{"bookingId":11,"gatewayReference":"cs_1","outcome":"succeeded"}`,
			wantSettle: true,
			want:       ackRecord{acked: true},
		},
		{
			name:       "should ack an outcome that can never apply",
			body:       `{"bookingId":11,"gatewayReference":"cs_1","outcome":"succeeded"}`,
			settleErr:  fmt.Errorf("booking 11 is cancelled: %w", domain.ErrInvalidTransition),
			wantSettle: true,
			want:       ackRecord{acked: true},
		},
		{
			name:       "should requeue on a transient store error",
			body:       `{"bookingId":11,"gatewayReference":"cs_1","outcome":"succeeded"}`,
			settleErr:  fmt.Errorf("%w: deadlock detected", domain.ErrTransientStore),
			wantSettle: true,
			want:       ackRecord{nacked: true, requeue: true},
		},
		{
			name:       "should requeue an unknown failure once",
			body:       `{"bookingId":11,"gatewayReference":"cs_1","outcome":"succeeded"}`,
			settleErr:  errors.New("boom"),
			wantSettle: true,
			want:       ackRecord{nacked: true, requeue: true},
		},
		{
			name:        "should dead letter a redelivered unknown failure",
			body:        `{"bookingId":11,"gatewayReference":"cs_1","outcome":"succeeded"}`,
			redelivered: true,
			settleErr:   errors.New("boom"),
			wantSettle:  true,
			want:        ackRecord{nacked: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := new(mockSettler)
			if tt.wantSettle {
				settler.On("Settle", mock.Anything, succeeded).Return(&domain.Booking{ID: 11}, tt.settleErr)
			}

			consumer := NewConsumer(ConsumerConfig{}, settler, slog.New(slog.NewTextHandler(io.Discard, nil)))

			record := &ackRecord{}
			consumer.handleDelivery(context.Background(), amqp.Delivery{
				Acknowledger: fakeAcknowledger{record: record},
				DeliveryTag:  1,
				Redelivered:  tt.redelivered,
				Body:         []byte(tt.body),
			})

			assert.Equal(t, tt.want, *record)
			settler.AssertExpectations(t)
		})
	}
}

func TestNewConsumerDefaults(t *testing.T) {
	consumer := NewConsumer(ConsumerConfig{URL: "amqp://localhost"}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, DefaultQueue, consumer.config.Queue)
	assert.Equal(t, DefaultPrefetch, consumer.config.Prefetch)
}
