package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BookingsTestSuite struct {
	BaseSuite
}

func TestBookingsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(BookingsTestSuite))
}

func (s *BookingsTestSuite) TestCreateBookingHandler() {
	cookies := s.app.authenticatedUserCookies(s.T(), TestUserId)

	scenarios := []Scenario{
		{
			Name:           "creates a pending booking from held seats",
			Method:         "POST",
			URL:            "/showtimes/1/bookings",
			Body:           strings.NewReader(`{"seatIds": [1, 2], "totalAmount": "24.00"}`),
			Cookies:        cookies,
			ExpectedStatus: http.StatusCreated,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				insertLock(t, app.DB, TestShowtimeId, TestSeatA1, TestUserId, time.Now().Add(5*time.Minute))
				insertLock(t, app.DB, TestShowtimeId, TestSeatA2, TestUserId, time.Now().Add(5*time.Minute))
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				var booking api.BookingResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&booking))

				assert.Equal(t, api.BookingStatus("pending"), booking.Status)
				assert.Equal(t, "24", booking.TotalAmount.String())
				assert.Equal(t, "Test Movie", booking.Showtime.MovieTitle)
				require.Len(t, booking.Seats, 2)
				assert.Equal(t, "A", booking.Seats[0].Row)
				assert.Equal(t, 1, booking.Seats[0].Number)

				assert.Equal(t, "pending", bookingStatus(t, app.DB, booking.Id))
				assert.Equal(t, 2, countRows(t, app.DB,
					`SELECT COUNT(*) FROM booking_seats WHERE booking_id = $1 AND NOT is_final`, booking.Id))
			},
		},
		{
			Name:             "rejects seats the user does not hold",
			Method:           "POST",
			URL:              "/showtimes/1/bookings",
			Body:             strings.NewReader(`{"seatIds": [1, 2], "totalAmount": "24.00"}`),
			Cookies:          cookies,
			ExpectedStatus:   http.StatusConflict,
			ExpectedResponse: `{"message": "your selections have expired, please select your seats again"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				insertLock(t, app.DB, TestShowtimeId, TestSeatA1, TestUserId, time.Now().Add(5*time.Minute))
				insertLock(t, app.DB, TestShowtimeId, TestSeatA2, OtherUserId, time.Now().Add(5*time.Minute))
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				assert.Zero(t, countRows(t, app.DB, `SELECT COUNT(*) FROM bookings`))
				assert.Zero(t, countRows(t, app.DB, `SELECT COUNT(*) FROM booking_seats`))
			},
		},
		{
			Name:             "rejects a lock that has expired",
			Method:           "POST",
			URL:              "/showtimes/1/bookings",
			Body:             strings.NewReader(`{"seatIds": [1], "totalAmount": "12.00"}`),
			Cookies:          cookies,
			ExpectedStatus:   http.StatusConflict,
			ExpectedResponse: `{"message": "your selections have expired, please select your seats again"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				insertLock(t, app.DB, TestShowtimeId, TestSeatA1, TestUserId, time.Now().Add(-time.Second))
			},
		},
		{
			Name:             "rejects a negative amount",
			Method:           "POST",
			URL:              "/showtimes/1/bookings",
			Body:             strings.NewReader(`{"seatIds": [1], "totalAmount": "-1.00"}`),
			Cookies:          cookies,
			ExpectedStatus:   http.StatusUnprocessableEntity,
			ExpectedResponse: `{
				"message": "One or more fields have invalid values",
				"validationErrors": [
					{"field": "TotalAmount", "issue": "must be a non-negative amount with at most two decimal places"}
				]
			}`,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *BookingsTestSuite) TestGetBookingHandler() {
	scenarios := []Scenario{
		{
			Name:           "returns the booking of the owner",
			Method:         "GET",
			URL:            "/bookings/1",
			Cookies:        s.app.authenticatedUserCookies(s.T(), TestUserId),
			ExpectedStatus: http.StatusOK,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				executeSQLFile(t, app.DB, "testdata/pending_bookings.sql")
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				var booking api.BookingResponse
				require.NoError(t, json.NewDecoder(res.Body).Decode(&booking))

				assert.Equal(t, 1, booking.Id)
				assert.Equal(t, api.BookingStatus("pending"), booking.Status)
				assert.Empty(t, booking.Payments)
			},
		},
		{
			Name:             "hides bookings of other users",
			Method:           "GET",
			URL:              "/bookings/2",
			Cookies:          s.app.authenticatedUserCookies(s.T(), TestUserId),
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: `{"message": "The requested resource not found"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				executeSQLFile(t, app.DB, "testdata/pending_bookings.sql")
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *BookingsTestSuite) TestCancelBookingHandler() {
	cookies := s.app.authenticatedUserCookies(s.T(), TestUserId)

	scenarios := []Scenario{
		{
			Name:           "cancels a pending booking and frees its seats",
			Method:         "POST",
			URL:            "/bookings/1/cancel",
			Cookies:        cookies,
			ExpectedStatus: http.StatusOK,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				executeSQLFile(t, app.DB, "testdata/pending_bookings.sql")
				insertLock(t, app.DB, TestShowtimeId, TestSeatA1, TestUserId, time.Now().Add(5*time.Minute))
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				assert.Equal(t, "cancelled", bookingStatus(t, app.DB, 1))
				assert.Zero(t, countRows(t, app.DB, `SELECT COUNT(*) FROM seat_locks`))

				events := app.Events.Events()
				require.Len(t, events, 1)
				assert.Equal(t, domain.EventSeatsReleased, events[0].Type)
				assert.Equal(t, []int{TestSeatA1}, events[0].SeatIDs)
			},
		},
		{
			Name:             "refuses to cancel a cancelled booking",
			Method:           "POST",
			URL:              "/bookings/1/cancel",
			Cookies:          cookies,
			ExpectedStatus:   http.StatusConflict,
			ExpectedResponse: `{"message": "booking status does not allow this operation"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				executeSQLFile(t, app.DB, "testdata/pending_bookings.sql")
				_, err := app.DB.Exec(context.Background(), `UPDATE bookings SET status = 'cancelled' WHERE id = 1`)
				require.NoError(t, err)
			},
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}

func (s *BookingsTestSuite) TestConfirmPaymentIsIdempotent() {
	executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")
	ctx := context.Background()

	booking, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, booking.Status)

	booking, err = s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, booking.Status)

	s.Equal(1, countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM payments WHERE booking_id = 1 AND status = 'succeeded'`))
	s.Equal(1, countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM booking_seats WHERE booking_id = 1 AND is_final`))

	events := s.app.Events.Events()
	s.Require().Len(events, 1)
	s.Equal(domain.EventSeatsBooked, events[0].Type)
	s.Equal([]int{TestSeatA1}, events[0].SeatIDs)
	s.Require().NotNil(events[0].BookingID)
	s.Equal(1, *events[0].BookingID)
}

func (s *BookingsTestSuite) TestConfirmPaymentRejectsDoubleSale() {
	executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")
	ctx := context.Background()

	_, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
	s.Require().NoError(err)

	_, err = s.app.Bookings.ConfirmPayment(ctx, 2, "cs_test_2", "pi_test_2")
	s.ErrorIs(err, domain.ErrAlreadyBooked)

	s.Equal("paid", bookingStatus(s.T(), s.app.DB, 1))
	s.Equal("cancelled", bookingStatus(s.T(), s.app.DB, 2))
	s.Equal(1, countRows(s.T(), s.app.DB,
		`SELECT COUNT(*) FROM payments WHERE gateway_reference = 'cs_test_2' AND status = 'refund_required'`))
	s.Equal(1, countRows(s.T(), s.app.DB,
		`SELECT COUNT(*) FROM booking_seats WHERE seat_id = $1 AND showtime_id = $2 AND is_final`,
		TestSeatA1, TestShowtimeId))

	s.Len(s.app.Events.Events(), 1, "only the winning booking announces its seats")
}

func (s *BookingsTestSuite) TestFailPayment() {
	ctx := context.Background()

	s.Run("keeps a pending booking pending", func() {
		resetDatabase(s.T(), s.app.DB)
		executeSQLFile(s.T(), s.app.DB, "testdata/base_state.sql")
		executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")
		s.app.Events.Reset()

		booking, err := s.app.Bookings.FailPayment(ctx, 1, "cs_test_1", "card_declined")
		s.Require().NoError(err)

		s.Equal(domain.BookingStatusPending, booking.Status)
		s.Equal(1, countRows(s.T(), s.app.DB,
			`SELECT COUNT(*) FROM payments WHERE gateway_reference = 'cs_test_1' AND status = 'failed'`))
		s.Empty(s.app.Events.Events())
	})

	s.Run("keeps a paid booking paid when a stale checkout fails", func() {
		resetDatabase(s.T(), s.app.DB)
		executeSQLFile(s.T(), s.app.DB, "testdata/base_state.sql")
		executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")

		_, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
		s.Require().NoError(err)
		s.app.Events.Reset()

		booking, err := s.app.Bookings.FailPayment(ctx, 1, "cs_old", "checkout.session.expired")
		s.Require().NoError(err)

		s.Equal(domain.BookingStatusPaid, booking.Status)
		s.Equal("paid", bookingStatus(s.T(), s.app.DB, 1))
		s.Equal(1, countRows(s.T(), s.app.DB,
			`SELECT COUNT(*) FROM payments WHERE gateway_reference = 'cs_test_1' AND status = 'succeeded'`))
		s.Equal(1, countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM booking_seats WHERE booking_id = 1 AND is_final`))
		s.Empty(s.app.Events.Events())
	})

	s.Run("keeps a paid booking paid when a failure names no payment", func() {
		resetDatabase(s.T(), s.app.DB)
		executeSQLFile(s.T(), s.app.DB, "testdata/base_state.sql")
		executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")

		_, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
		s.Require().NoError(err)
		s.app.Events.Reset()

		booking, err := s.app.Bookings.FailPayment(ctx, 1, "", "payment failed")
		s.Require().NoError(err)

		s.Equal(domain.BookingStatusPaid, booking.Status)
		s.Equal(1, countRows(s.T(), s.app.DB,
			`SELECT COUNT(*) FROM payments WHERE booking_id = 1 AND status = 'succeeded'`))
		s.Empty(s.app.Events.Events())
	})
}

func (s *BookingsTestSuite) TestRefundPayment() {
	ctx := context.Background()

	s.Run("cancels a paid booking when its payment intent is refunded", func() {
		resetDatabase(s.T(), s.app.DB)
		executeSQLFile(s.T(), s.app.DB, "testdata/base_state.sql")
		executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")

		_, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
		s.Require().NoError(err)
		s.app.Events.Reset()

		booking, err := s.app.Bookings.RefundPayment(ctx, 1, "pi_test_1", "charge refunded")
		s.Require().NoError(err)

		s.Equal(domain.BookingStatusCancelled, booking.Status)
		s.Equal(1, countRows(s.T(), s.app.DB,
			`SELECT COUNT(*) FROM payments WHERE gateway_reference = 'cs_test_1' AND status = 'refunded'`))
		s.Zero(countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM booking_seats WHERE is_final`))

		events := s.app.Events.Events()
		s.Require().Len(events, 1)
		s.Equal(domain.EventSeatsReleased, events[0].Type)
		s.Equal([]int{TestSeatA1}, events[0].SeatIDs)
	})

	s.Run("ignores a refund of another payment", func() {
		resetDatabase(s.T(), s.app.DB)
		executeSQLFile(s.T(), s.app.DB, "testdata/base_state.sql")
		executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")

		_, err := s.app.Bookings.ConfirmPayment(ctx, 1, "cs_test_1", "pi_test_1")
		s.Require().NoError(err)
		s.app.Events.Reset()

		booking, err := s.app.Bookings.RefundPayment(ctx, 1, "pi_unrelated", "charge refunded")
		s.Require().NoError(err)

		s.Equal(domain.BookingStatusPaid, booking.Status)
		s.Equal(1, countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM booking_seats WHERE booking_id = 1 AND is_final`))
		s.Empty(s.app.Events.Events())
	})
}

func (s *BookingsTestSuite) TestConfirmPaymentClearsLocksOfOtherUsers() {
	executeSQLFile(s.T(), s.app.DB, "testdata/pending_bookings.sql")
	insertLock(s.T(), s.app.DB, TestShowtimeId, TestSeatA1, OtherUserId, time.Now().Add(5*time.Minute))

	_, err := s.app.Bookings.ConfirmPayment(context.Background(), 1, "cs_test_1", "pi_test_1")
	s.Require().NoError(err)

	s.Zero(countRows(s.T(), s.app.DB,
		`SELECT COUNT(*) FROM seat_locks WHERE showtime_id = $1 AND seat_id = $2`, TestShowtimeId, TestSeatA1))

	_, err = s.app.Locks.Acquire(context.Background(), TestShowtimeId, []int{TestSeatA1},
		domain.Holder{UserID: OtherUserId})
	s.ErrorIs(err, domain.ErrAlreadyBooked)
}

func (s *BookingsTestSuite) TestLockBookPayFlow() {
	ctx := context.Background()
	buyer := domain.Holder{UserID: TestUserId}
	rival := domain.Holder{UserID: OtherUserId}

	_, err := s.app.Locks.Acquire(ctx, TestShowtimeId, []int{TestSeatA1, TestSeatA2}, buyer)
	s.Require().NoError(err)

	_, err = s.app.Locks.Acquire(ctx, TestShowtimeId, []int{TestSeatA1}, rival)
	s.Require().ErrorIs(err, domain.ErrSeatConflict)
	s.NotErrorIs(err, domain.ErrAlreadyBooked)
	s.Equal([]int{TestSeatA1}, domain.ConflictingSeats(err))

	detail, err := s.app.Bookings.Create(ctx, domain.BookingRequest{
		ShowtimeID:  TestShowtimeId,
		SeatIDs:     []int{TestSeatA1, TestSeatA2},
		UserID:      TestUserId,
		TotalAmount: decimal.RequireFromString("24.00"),
	})
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPending, detail.Status)

	booking, err := s.app.Bookings.ConfirmPayment(ctx, detail.ID, "cs_flow", "pi_flow")
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusPaid, booking.Status)
	s.Zero(countRows(s.T(), s.app.DB, `SELECT COUNT(*) FROM seat_locks`))

	_, err = s.app.Locks.Acquire(ctx, TestShowtimeId, []int{TestSeatA1}, rival)
	s.ErrorIs(err, domain.ErrAlreadyBooked)
	s.Equal([]int{TestSeatA1}, domain.ConflictingSeats(err))
}
