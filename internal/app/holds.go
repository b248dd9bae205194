package app

import (
	"errors"
	"net/http"

	"github.com/cinexplorer/booking-api/api"
	"github.com/cinexplorer/booking-api/internal/domain"
)

// CreateHoldHandler places a temporary exclusive claim on a set of seats.
// The repository reserves all requested seats in one transaction or none of
// them; losing a race for any seat fails the whole request with a conflict.
func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	sessionID, err := app.readUUIDParam(r, "sessionId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CreateHoldRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	seatRefs := make([]domain.SeatRef, len(input.Seats))
	for i, seat := range input.Seats {
		seatRefs[i] = domain.SeatRef{Row: seat.Row, Number: seat.Number}
	}

	ticketTypes := make([]domain.TicketTypeCount, len(input.TicketTypes))
	for i, tc := range input.TicketTypes {
		ticketTypes[i] = domain.TicketTypeCount{Type: domain.TicketType(tc.Type), Count: tc.Count}
	}

	// Validation happens before any storage is touched.
	err = domain.ValidateTicketTypeCounts(ticketTypes, len(seatRefs))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	session, err := app.catalogRepo.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = domain.ValidateSeatRefs(session.Geometry, seatRefs)
	if err != nil {
		var invalidSeats *domain.InvalidSeatReferenceError
		if errors.As(err, &invalidSeats) {
			logger.Warn("hold request referenced seats outside the room layout", "session_id", sessionID)
			app.badRequestResponse(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)
	hold := domain.NewHold(sessionID, userID, seatRefs, ticketTypes)

	err = app.holdRepo.Create(r.Context(), hold)
	if err != nil {
		var unavailable *domain.SeatsUnavailableError

		switch {
		case errors.As(err, &unavailable):
			logger.Warn("hold creation conflict: requested seats are not available", "session_id", sessionID)
			app.editConflictResponseWithErr(w, r, unavailable)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.holdsCreated.Add(r.Context(), 1)

	resp := api.HoldResponse{
		HoldId:    hold.ID.String(),
		SessionId: hold.SessionID.String(),
		Seats:     input.Seats,
		ExpiresAt: hold.ExpiresAt,
		HoldTime:  int(domain.HoldTTL.Seconds()),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ReleaseHoldHandler voluntarily gives up an active hold, returning its
// seats to the pool before the TTL runs out.
func (app *Application) ReleaseHoldHandler(w http.ResponseWriter, r *http.Request) {
	holdID, err := app.readUUIDParam(r, "holdId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID := app.contextGetUserId(r)

	err = app.holdRepo.Release(r.Context(), holdID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHoldNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrHoldOwnershipMismatch):
			app.forbiddenResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
