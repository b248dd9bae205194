package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cinexplorer/booking-api/api"
	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBookingHandler settles a hold: it re-validates the hold, computes the
// canonical price, applies an optional promotion, validates the payment
// method, and converts the hold into a payment plus tickets in one
// transaction. Any failure leaves seats, hold, and payments untouched.
func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

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

	holdID, err := uuid.Parse(input.HoldId)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid hold ID"))
		return
	}

	userID := app.contextGetUserId(r)
	now := time.Now()

	hold, err := app.holdRepo.GetById(r.Context(), holdID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			app.notFoundResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if hold.UserID != userID {
		logger.Warn("settlement attempt on a hold owned by another user", "hold_id", holdID)
		app.forbiddenResponse(w, r, domain.ErrHoldOwnershipMismatch)
		return
	}

	if hold.Status != domain.HoldStatusActive || hold.IsExpired(now) {
		// Lazy expiry: settle the books for the lapsed hold while we are here.
		if hold.Status == domain.HoldStatusActive {
			if expireErr := app.holdRepo.Expire(r.Context(), holdID); expireErr != nil {
				logger.Error("failed to expire lapsed hold", "hold_id", holdID, "error", expireErr)
			} else {
				app.metrics.holdsExpired.Add(r.Context(), 1)
			}
		}

		app.editConflictResponseWithErr(w, r, domain.ErrHoldExpired)
		return
	}

	session, err := app.catalogRepo.GetSession(r.Context(), hold.SessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	total := domain.TotalPrice(hold.TicketTypes)

	if input.PromotionCode != nil {
		discount, err := app.promotions.Validate(r.Context(), *input.PromotionCode, session.MovieID, now)
		if err != nil {
			if errors.Is(err, domain.ErrPromotionNotApplicable) {
				app.badRequestResponse(w, r, err)
				return
			}

			app.serverErrorResponse(w, r, err)
			return
		}

		total = domain.ApplyDiscount(total, discount)
	}

	if !domain.AmountsMatch(input.TotalAmount, total) {
		logger.Warn("settlement amount mismatch", "hold_id", holdID, "declared", input.TotalAmount, "expected", total)
		app.badRequestResponse(w, r, domain.ErrAmountMismatch)
		return
	}

	method := domain.PaymentMethod(input.PaymentMethod)

	details := toCardDetails(input.PaymentDetails)

	err = domain.ValidateCardDetails(method, details)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payment := buildPayment(userID, method, details, total, app.config.BaseURL)
	payment.Tickets = buildTickets(payment, *hold)

	err = app.paymentRepo.CreateSettlement(r.Context(), holdID, &payment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHoldNotFound):
			app.notFoundResponseWithErr(w, r, domain.ErrHoldNotFound)
		case errors.Is(err, domain.ErrHoldExpired):
			logger.Warn("settlement lost the race against hold expiry", "hold_id", holdID)
			app.editConflictResponseWithErr(w, r, domain.ErrHoldExpired)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.settlements.Add(r.Context(), 1)
	logger.Info("hold settled", "hold_id", holdID, "payment_id", payment.ID, "method", method)

	if email := app.contextGetUserEmail(r); email != "" {
		app.sendBookingConfirmation(email, payment, *hold, session)
	}

	resp := api.BookingResponse{
		PaymentId:  payment.ID.String(),
		PurchaseId: payment.Tickets[0].PurchaseID.String(),
		Status:     string(payment.Status),
		Amount:     payment.Amount,
		PixCode:    payment.PixCode,
		PixQrCode:  payment.PixQrCode,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toCardDetails(details *api.PaymentDetails) *domain.CardDetails {
	if details == nil {
		return nil
	}

	return &domain.CardDetails{
		Number:       details.CardNumber,
		Name:         details.CardName,
		Expiry:       details.ExpiryDate,
		CVV:          details.Cvv,
		Installments: details.Installments,
	}
}

// buildPayment assembles the payment record for the chosen method. PIX stays
// PENDING until the external webhook confirms it; card payments complete
// synchronously.
func buildPayment(
	userID uuid.UUID,
	method domain.PaymentMethod,
	details *domain.CardDetails,
	amount decimal.Decimal,
	baseURL string) domain.Payment {

	payment := domain.Payment{
		ID:     uuid.New(),
		UserID: userID,
		Method: method,
		Amount: amount,
		Status: domain.PaymentStatusCompleted,
	}

	switch method {
	case domain.PaymentMethodPix:
		payment.Status = domain.PaymentStatusPending

		pixCode := fmt.Sprintf("PIX-%s", uuid.NewString())
		pixQrCode := fmt.Sprintf("%s/pix/qr/%s", strings.TrimSuffix(baseURL, "/"), pixCode)

		payment.PixCode = &pixCode
		payment.PixQrCode = &pixQrCode

	case domain.PaymentMethodCredit:
		lastFour := cardLastFour(details.Number)
		payment.CardLastFour = &lastFour

		installments := details.Installments
		if installments == 0 {
			installments = 1
		}
		payment.Installments = &installments

	case domain.PaymentMethodDebit:
		lastFour := cardLastFour(details.Number)
		payment.CardLastFour = &lastFour
	}

	return payment
}

func cardLastFour(number string) string {
	if len(number) <= 4 {
		return number
	}

	return number[len(number)-4:]
}

func buildTickets(payment domain.Payment, hold domain.Hold) []domain.Ticket {
	purchaseID := uuid.New()
	types := domain.AssignTicketTypes(hold.Seats, hold.TicketTypes)

	tickets := make([]domain.Ticket, len(hold.Seats))

	for i, seat := range hold.Seats {
		tickets[i] = domain.Ticket{
			ID:         uuid.New(),
			PaymentID:  payment.ID,
			PurchaseID: purchaseID,
			SessionID:  hold.SessionID,
			UserID:     hold.UserID,
			Type:       types[i],
			Price:      domain.TicketRates[types[i]],
			Seat:       seat,
			Status:     domain.TicketStatusActive,
		}
	}

	return tickets
}

func (app *Application) sendBookingConfirmation(
	email string,
	payment domain.Payment,
	hold domain.Hold,
	session *domain.Session) {

	seats := make([]string, len(hold.Seats))
	for i, seat := range hold.Seats {
		seats[i] = seat.String()
	}

	data := map[string]any{
		"MovieTitle": session.MovieTitle,
		"StartsAt":   session.StartsAt.Format(time.RFC1123),
		"PurchaseId": payment.Tickets[0].PurchaseID.String(),
		"Seats":      strings.Join(seats, ", "),
		"Amount":     payment.Amount.StringFixed(2),
	}

	app.background(func() {
		err := app.mailer.Send(email, "booking_confirmation.tmpl", data)
		if err != nil {
			app.logger.Error("failed to send booking confirmation", "payment_id", payment.ID, "error", err)
		}
	})
}

func (app *Application) GetPaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, err := app.readUUIDParam(r, "paymentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	payment, err := app.paymentRepo.GetById(r.Context(), paymentID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			app.notFoundResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentStatusResponse{
		PaymentId: payment.ID.String(),
		Status:    string(payment.Status),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPaymentDetailsHandler(w http.ResponseWriter, r *http.Request) {
	paymentID, err := app.readUUIDParam(r, "paymentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	payment, err := app.paymentRepo.GetWithTickets(r.Context(), paymentID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			app.notFoundResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	tickets := make([]api.Ticket, len(payment.Tickets))

	var session *domain.Session

	if len(payment.Tickets) > 0 {
		// All tickets of a payment come from one hold, so one session lookup
		// covers every row.
		session, err = app.catalogRepo.GetSession(r.Context(), payment.Tickets[0].SessionID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	for i, t := range payment.Tickets {
		tickets[i] = api.Ticket{
			TicketId:   t.ID.String(),
			PurchaseId: t.PurchaseID.String(),
			SessionId:  t.SessionID.String(),
			MovieTitle: session.MovieTitle,
			StartsAt:   session.StartsAt,
			Type:       string(t.Type),
			Price:      t.Price,
			Seat:       api.SeatRef{Row: t.Seat.Row, Number: t.Seat.Number},
			Status:     string(t.Status),
		}
	}

	resp := api.PaymentDetailsResponse{
		PaymentId: payment.ID.String(),
		Amount:    payment.Amount,
		Method:    string(payment.Method),
		Status:    string(payment.Status),
		Tickets:   tickets,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// PixWebhookHandler resolves a PENDING PIX payment once the payment network
// confirms or rejects the transfer.
func (app *Application) PixWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.PixWebhookRequest

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

	err = app.paymentRepo.UpdateStatusByPixCode(r.Context(), input.PixCode, domain.PaymentStatus(input.Status))
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			logger.Warn("PIX webhook for an unknown or already resolved payment", "pix_code", input.PixCode)
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	logger.Info("PIX payment resolved", "pix_code", input.PixCode, "status", input.Status)

	w.WriteHeader(http.StatusNoContent)
}
