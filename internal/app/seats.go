package app

import (
	"errors"
	"net/http"

	"github.com/cinexplorer/booking-api/api"
	"github.com/cinexplorer/booking-api/internal/domain"
)

// GetSessionSeatMap returns the full seat grid of a session: the layout
// implied by the room geometry with the persisted seat records overlaid.
// Lapsed holds touching the session are expired first, so a RESERVED seat
// under a dead hold is already AVAILABLE by the time the map is built.
func (app *Application) GetSessionSeatMap(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	sessionID, err := app.readUUIDParam(r, "sessionId")
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

	released, err := app.holdRepo.ReleaseExpiredBySession(r.Context(), sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if released > 0 {
		logger.Info("released expired holds while building seat map", "session_id", sessionID, "count", released)
		app.metrics.holdsExpired.Add(r.Context(), int64(released))
	}

	persisted, err := app.seatRepo.GetSeatsBySession(r.Context(), sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	seats := domain.BuildSeatMap(sessionID, session.Geometry, persisted)

	resp := toSeatMapResponse(session, seats)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(session *domain.Session, seats []domain.Seat) api.SeatMapResponse {
	return api.SeatMapResponse{
		SessionId:  session.ID.String(),
		MovieTitle: session.MovieTitle,
		StartsAt:   session.StartsAt,
		SeatRows:   toSeatRows(seats),
	}
}

func toSeatRows(seats []domain.Seat) []api.SeatRow {
	// Seats are pre-sorted by row letter, then seat number, so one pass
	// groups them without extra sorting.

	var seatRows []api.SeatRow
	currentRow := api.SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = api.SeatRow{Row: v.Row}
		}

		currentRow.Seats = append(currentRow.Seats, api.Seat{
			Row:       v.Row,
			Number:    v.Number,
			Available: v.Status == domain.SeatStatusAvailable,
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
