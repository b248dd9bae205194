package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cinexplorer/booking-api/api"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BookingsTestSuite struct {
	BaseSuite
}

func TestBookingsSuite(t *testing.T) {
	suite.Run(t, new(BookingsTestSuite))
}

func (s *BookingsTestSuite) TestRequiresAuthentication() {
	rec := s.doRequest(http.MethodGet, "/tickets", nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.doRequest(http.MethodPost, "/bookings", nil, "Bearer not-a-token")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *BookingsTestSuite) TestFullBookingLifecycle() {
	sessionID := seedSession(s.T(), s.app.DB, "Interstellar", time.Now().Add(72*time.Hour), 3, 4)

	userID := uuid.New()
	token := bearerToken(s.T(), userID, "john@example.com")

	// The untouched session exposes the full grid as available.
	rec := s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	seatMap := decodeJSON[api.SeatMapResponse](s.T(), rec)
	s.Require().Len(seatMap.SeatRows, 3)
	for _, row := range seatMap.SeatRows {
		s.Len(row.Seats, 4)
		for _, seat := range row.Seats {
			s.True(seat.Available)
		}
	}

	holdReq := api.CreateHoldRequest{
		Seats: []api.SeatRef{
			{Row: "A", Number: 1},
			{Row: "A", Number: 2},
		},
		TicketTypes: []api.TicketTypeCount{
			{Type: "ADULT", Count: 2},
		},
	}

	rec = s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), holdReq, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	hold := decodeJSON[api.HoldResponse](s.T(), rec)
	s.NotEmpty(hold.HoldId)

	// A competing hold for an overlapping seat set loses entirely.
	otherToken := bearerToken(s.T(), uuid.New(), "jane@example.com")

	rec = s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), holdReq, otherToken)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.doRequest(http.MethodPost, "/bookings", api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "PIX",
		TotalAmount:   decimal.NewFromInt(50),
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	booking := decodeJSON[api.BookingResponse](s.T(), rec)
	s.Equal("PENDING", booking.Status)
	s.Require().NotNil(booking.PixCode)

	// Settled seats stay taken on the public map.
	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	seatMap = decodeJSON[api.SeatMapResponse](s.T(), rec)
	s.False(seatMap.SeatRows[0].Seats[0].Available)
	s.False(seatMap.SeatRows[0].Seats[1].Available)
	s.True(seatMap.SeatRows[0].Seats[2].Available)

	// Settling the same hold twice fails: it is no longer ACTIVE.
	rec = s.doRequest(http.MethodPost, "/bookings", api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "PIX",
		TotalAmount:   decimal.NewFromInt(50),
	}, token)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.doRequest(http.MethodPost, "/webhooks/pix", api.PixWebhookRequest{
		PixCode: *booking.PixCode,
		Status:  "COMPLETED",
	}, "")
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/payments/%s", booking.PaymentId), nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("COMPLETED", decodeJSON[api.PaymentStatusResponse](s.T(), rec).Status)

	// A second webhook for the already resolved code is rejected.
	rec = s.doRequest(http.MethodPost, "/webhooks/pix", api.PixWebhookRequest{
		PixCode: *booking.PixCode,
		Status:  "COMPLETED",
	}, "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.doRequest(http.MethodGet, "/tickets", nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)

	tickets := decodeJSON[api.TicketListResponse](s.T(), rec).Tickets
	s.Require().Len(tickets, 2)
	s.Equal("Interstellar", tickets[0].MovieTitle)

	s.Eventually(func() bool {
		emails := s.app.Mailer.GetSentEmails()
		return len(emails) == 1 && emails[0].Recipient == "john@example.com"
	}, 2*time.Second, 50*time.Millisecond)

	// The QR code survives a round trip through the cache.
	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/tickets/%s/qrcode", tickets[0].TicketId), nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	firstQR := decodeJSON[api.QRCodeResponse](s.T(), rec).QrCode

	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/tickets/%s/qrcode", tickets[0].TicketId), nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(firstQR, decodeJSON[api.QRCodeResponse](s.T(), rec).QrCode)

	// Cancelling outside the cutoff frees the seat and refunds the payment.
	rec = s.doRequest(http.MethodDelete, fmt.Sprintf("/tickets/%s", tickets[0].TicketId), nil, token)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	seatMap = decodeJSON[api.SeatMapResponse](s.T(), rec)
	s.True(seatMap.SeatRows[0].Seats[0].Available)
	s.False(seatMap.SeatRows[0].Seats[1].Available)

	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/payments/%s", booking.PaymentId), nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("REFUNDED", decodeJSON[api.PaymentStatusResponse](s.T(), rec).Status)

	// Cancelling the same ticket again conflicts.
	rec = s.doRequest(http.MethodDelete, fmt.Sprintf("/tickets/%s", tickets[0].TicketId), nil, token)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *BookingsTestSuite) TestConcurrentHoldsOnOverlappingSeats() {
	sessionID := seedSession(s.T(), s.app.DB, "Heat", time.Now().Add(72*time.Hour), 2, 4)

	body, err := json.Marshal(api.CreateHoldRequest{
		Seats: []api.SeatRef{
			{Row: "A", Number: 1},
			{Row: "A", Number: 2},
		},
		TicketTypes: []api.TicketTypeCount{{Type: "ADULT", Count: 2}},
	})
	s.Require().NoError(err)

	url := fmt.Sprintf("/sessions/%s/holds", sessionID)
	tokens := []string{
		bearerToken(s.T(), uuid.New(), ""),
		bearerToken(s.T(), uuid.New(), ""),
	}

	// Both requests hit the store at the same time. The conditional seat
	// update inside the hold transaction must let exactly one through.
	codes := make(chan int, len(tokens))

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", token)

			rec := httptest.NewRecorder()
			s.app.App.Routes().ServeHTTP(rec, req)

			codes <- rec.Code
		}()
	}

	wg.Wait()
	close(codes)

	got := make([]int, 0, len(tokens))
	for code := range codes {
		got = append(got, code)
	}

	s.ElementsMatch([]int{http.StatusCreated, http.StatusConflict}, got)

	// The winner's two seats are reserved, nothing else.
	rec := s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	taken := 0
	for _, row := range decodeJSON[api.SeatMapResponse](s.T(), rec).SeatRows {
		for _, seat := range row.Seats {
			if !seat.Available {
				taken++
			}
		}
	}
	s.Equal(2, taken)
}

func (s *BookingsTestSuite) TestLapsedHoldFreesSeatsLazily() {
	sessionID := seedSession(s.T(), s.app.DB, "Dune", time.Now().Add(72*time.Hour), 2, 2)

	userID := uuid.New()
	token := bearerToken(s.T(), userID, "")

	rec := s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), api.CreateHoldRequest{
		Seats:       []api.SeatRef{{Row: "B", Number: 1}},
		TicketTypes: []api.TicketTypeCount{{Type: "STUDENT", Count: 1}},
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	hold := decodeJSON[api.HoldResponse](s.T(), rec)

	lapseHold(s.T(), s.app.DB, hold.HoldId)

	// Settlement re-checks the deadline and refuses the lapsed hold.
	rec = s.doRequest(http.MethodPost, "/bookings", api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "PIX",
		TotalAmount:   decimal.NewFromInt(18),
	}, token)
	s.Equal(http.StatusConflict, rec.Code)

	// Reading the seat map self-heals the grid; no sweep needed.
	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	seatMap := decodeJSON[api.SeatMapResponse](s.T(), rec)
	s.True(seatMap.SeatRows[1].Seats[0].Available)

	// And the freed seat can be held again by someone else.
	rec = s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), api.CreateHoldRequest{
		Seats:       []api.SeatRef{{Row: "B", Number: 1}},
		TicketTypes: []api.TicketTypeCount{{Type: "ADULT", Count: 1}},
	}, bearerToken(s.T(), uuid.New(), ""))
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *BookingsTestSuite) TestVoluntaryHoldRelease() {
	sessionID := seedSession(s.T(), s.app.DB, "Arrival", time.Now().Add(72*time.Hour), 2, 2)

	userID := uuid.New()
	token := bearerToken(s.T(), userID, "")

	rec := s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), api.CreateHoldRequest{
		Seats:       []api.SeatRef{{Row: "A", Number: 1}},
		TicketTypes: []api.TicketTypeCount{{Type: "SENIOR", Count: 1}},
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	hold := decodeJSON[api.HoldResponse](s.T(), rec)

	// Another user cannot release the hold.
	rec = s.doRequest(http.MethodDelete, fmt.Sprintf("/holds/%s", hold.HoldId), nil, bearerToken(s.T(), uuid.New(), ""))
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.doRequest(http.MethodDelete, fmt.Sprintf("/holds/%s", hold.HoldId), nil, token)
	s.Require().Equal(http.StatusNoContent, rec.Code)

	// A released hold cannot be settled.
	rec = s.doRequest(http.MethodPost, "/bookings", api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "PIX",
		TotalAmount:   decimal.NewFromInt(20),
	}, token)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.doRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/seats", sessionID), nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(decodeJSON[api.SeatMapResponse](s.T(), rec).SeatRows[0].Seats[0].Available)
}

func (s *BookingsTestSuite) TestPromotionDiscount() {
	sessionID := seedSession(s.T(), s.app.DB, "Oppenheimer", time.Now().Add(72*time.Hour), 2, 4)
	seedPromotion(s.T(), s.app.DB, "SUMMER10", 10)

	token := bearerToken(s.T(), uuid.New(), "")

	rec := s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), api.CreateHoldRequest{
		Seats: []api.SeatRef{
			{Row: "A", Number: 1},
			{Row: "A", Number: 2},
		},
		TicketTypes: []api.TicketTypeCount{{Type: "ADULT", Count: 2}},
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	hold := decodeJSON[api.HoldResponse](s.T(), rec)

	payment := api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "CREDIT",
		TotalAmount:   decimal.NewFromInt(45),
		PromotionCode: strPtr("SUMMER10"),
		PaymentDetails: &api.PaymentDetails{
			CardNumber:   "4111111111111111",
			CardName:     "JOHN DOE",
			ExpiryDate:   "12/30",
			Cvv:          "123",
			Installments: 3,
		},
	}

	// The discounted amount only passes together with the code.
	withoutCode := payment
	withoutCode.PromotionCode = nil

	rec = s.doRequest(http.MethodPost, "/bookings", withoutCode, token)
	s.Equal(http.StatusBadRequest, rec.Code)

	withUnknownCode := payment
	withUnknownCode.PromotionCode = strPtr("NOPE")

	rec = s.doRequest(http.MethodPost, "/bookings", withUnknownCode, token)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.doRequest(http.MethodPost, "/bookings", payment, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	booking := decodeJSON[api.BookingResponse](s.T(), rec)
	s.Equal("COMPLETED", booking.Status)
	s.True(booking.Amount.Equal(decimal.NewFromInt(45)))
}

func (s *BookingsTestSuite) TestCancellationInsideCutoff() {
	sessionID := seedSession(s.T(), s.app.DB, "Alien", time.Now().Add(2*time.Hour), 2, 2)

	token := bearerToken(s.T(), uuid.New(), "")

	rec := s.doRequest(http.MethodPost, fmt.Sprintf("/sessions/%s/holds", sessionID), api.CreateHoldRequest{
		Seats:       []api.SeatRef{{Row: "A", Number: 1}},
		TicketTypes: []api.TicketTypeCount{{Type: "CHILD", Count: 1}},
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	hold := decodeJSON[api.HoldResponse](s.T(), rec)

	rec = s.doRequest(http.MethodPost, "/bookings", api.CreateBookingRequest{
		HoldId:        hold.HoldId,
		PaymentMethod: "DEBIT",
		TotalAmount:   decimal.NewFromInt(15),
		PaymentDetails: &api.PaymentDetails{
			CardNumber: "4111111111111111",
			CardName:   "JOHN DOE",
			ExpiryDate: "12/30",
			Cvv:        "123",
		},
	}, token)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.doRequest(http.MethodGet, "/tickets", nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)

	tickets := decodeJSON[api.TicketListResponse](s.T(), rec).Tickets
	s.Require().Len(tickets, 1)

	// Less than 24 hours to the session: cancellation is refused.
	rec = s.doRequest(http.MethodDelete, fmt.Sprintf("/tickets/%s", tickets[0].TicketId), nil, token)
	s.Equal(http.StatusConflict, rec.Code)
}

func strPtr(s string) *string {
	return &s
}
