package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the slice of the catalog the booking engine needs: the room
// geometry the seat grid derives from, the schedule the cancellation window
// is checked against, and the movie/cinema identity promotions validate
// applicability with. The catalog itself is owned by another service.
type Session struct {
	ID         uuid.UUID
	MovieID    uuid.UUID
	MovieTitle string
	CinemaID   uuid.UUID
	RoomID     uuid.UUID
	StartsAt   time.Time
	Geometry   RoomGeometry
}

type CatalogRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
}
