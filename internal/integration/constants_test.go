package integration_test

const (
	TestUserId      = 1
	OtherUserId     = 2
	TestShowtimeId  = 1
	OtherShowtimeId = 2

	// Seats 1-4 belong to theater 1, rows A and B.
	TestSeatA1 = 1
	TestSeatA2 = 2
	TestSeatB1 = 3
	TestSeatB2 = 4

	TestWebhookSecret = "whsec_integration_test"
)
