package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cinexplorer/booking-api/api"
	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const ticketQRCodeTTL = 24 * time.Hour

func (app *Application) GetTicketsHandler(w http.ResponseWriter, r *http.Request) {
	userID := app.contextGetUserId(r)

	var status *domain.TicketStatus

	if s := r.URL.Query().Get("status"); s != "" {
		ts := domain.TicketStatus(strings.ToUpper(s))

		switch ts {
		case domain.TicketStatusActive, domain.TicketStatusUsed, domain.TicketStatusCancelled:
			status = &ts
		default:
			app.badRequestResponse(w, r, fmt.Errorf("invalid ticket status filter: %s", s))
			return
		}
	}

	summaries, err := app.ticketRepo.ListByUser(r.Context(), userID, status)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	tickets := make([]api.Ticket, len(summaries))
	for i, t := range summaries {
		tickets[i] = toTicketResponse(t)
	}

	resp := api.TicketListResponse{Tickets: tickets}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	ticketID, err := app.readUUIDParam(r, "ticketId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	ticket, err := app.ticketRepo.GetById(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	// Another user's ticket looks like a missing one.
	if ticket.UserID != userID {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toTicketResponse(*ticket), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetTicketQRCodeHandler returns the verification URL encoded in the ticket
// QR code. The URL is cached in Redis; a cache miss regenerates it, and a
// Redis outage only costs the caching.
func (app *Application) GetTicketQRCodeHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	ticketID, err := app.readUUIDParam(r, "ticketId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	ticket, err := app.ticketRepo.GetById(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if ticket.UserID != userID {
		app.notFoundResponse(w, r)
		return
	}

	if ticket.Status != domain.TicketStatusActive {
		app.editConflictResponseWithErr(w, r, fmt.Errorf("ticket is not active"))
		return
	}

	cacheKey := fmt.Sprintf("ticket_qr:%s", ticketID)

	qrCode, err := app.redis.Get(r.Context(), cacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("failed to read ticket QR code from cache", "ticket_id", ticketID, "error", err)
		}

		qrCode = fmt.Sprintf("%s/tickets/%s/verify", strings.TrimSuffix(app.config.BaseURL, "/"), ticketID)

		err = app.redis.Set(r.Context(), cacheKey, qrCode, ticketQRCodeTTL).Err()
		if err != nil {
			logger.Warn("failed to cache ticket QR code", "ticket_id", ticketID, "error", err)
		}
	}

	resp := api.QRCodeResponse{
		TicketId: ticketID.String(),
		QrCode:   qrCode,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelTicketHandler cancels an active ticket, frees its seat, and refunds
// the owning payment. The cancellation policy is checked before storage is
// touched; the reversal itself is one transaction.
func (app *Application) CancelTicketHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	ticketID, err := app.readUUIDParam(r, "ticketId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	ticket, err := app.ticketRepo.GetById(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = domain.ValidateCancellation(*ticket, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTicketAccessDenied):
			app.forbiddenResponse(w, r, err)
		case errors.Is(err, domain.ErrTicketNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrTicketAlreadyUsed),
			errors.Is(err, domain.ErrSessionAlreadyStarted),
			errors.Is(err, domain.ErrCancellationWindowClosed):
			app.editConflictResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	err = app.ticketRepo.Cancel(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			// Lost a race against another cancellation or a check-in.
			app.editConflictResponseWithErr(w, r, fmt.Errorf("ticket state changed, please retry"))
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	app.metrics.cancellations.Add(r.Context(), 1)
	logger.Info("ticket cancelled", "ticket_id", ticketID, "session_id", ticket.SessionID)

	w.WriteHeader(http.StatusNoContent)
}

func toTicketResponse(t domain.TicketSummary) api.Ticket {
	return api.Ticket{
		TicketId:   t.ID.String(),
		PurchaseId: t.PurchaseID.String(),
		SessionId:  t.SessionID.String(),
		MovieTitle: t.MovieTitle,
		StartsAt:   t.SessionStartsAt,
		Type:       string(t.Type),
		Price:      t.Price,
		Seat:       api.SeatRef{Row: t.Seat.Row, Number: t.Seat.Number},
		Status:     string(t.Status),
	}
}
