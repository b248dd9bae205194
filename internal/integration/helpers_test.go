package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func bearerToken(t testing.TB, userID uuid.UUID, email string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	return "Bearer " + signed
}

// doRequest runs a request through the full router, including the
// authentication middleware when a token is given.
func (s *BaseSuite) doRequest(method, url string, body any, token string) *httptest.ResponseRecorder {
	s.T().Helper()

	var reader *bytes.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(jsonData)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", token)
	}

	rec := httptest.NewRecorder()
	s.app.App.Routes().ServeHTTP(rec, req)

	return rec
}

func decodeJSON[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func seedSession(t testing.TB, db *pgxpool.Pool, movieTitle string, startsAt time.Time, rows, seatsPerRow int) uuid.UUID {
	t.Helper()

	ctx := context.Background()

	var roomID uuid.UUID
	err := db.QueryRow(ctx, `
		INSERT INTO rooms (name, seat_rows, seats_per_row)
		VALUES ($1, $2, $3)
		RETURNING id
	`, "Room 1", rows, seatsPerRow).Scan(&roomID)
	require.NoError(t, err)

	var sessionID uuid.UUID
	err = db.QueryRow(ctx, `
		INSERT INTO sessions (movie_id, movie_title, cinema_id, room_id, starts_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, uuid.New(), movieTitle, uuid.New(), roomID, startsAt).Scan(&sessionID)
	require.NoError(t, err)

	return sessionID
}

func seedPromotion(t testing.TB, db *pgxpool.Pool, code string, discountPercent int) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO promotions (code, discount_percent, is_active, valid_from, valid_until)
		VALUES ($1, $2, true, now() - interval '1 day', now() + interval '30 days')
	`, code, discountPercent)
	require.NoError(t, err)
}

// lapseHold rewinds a hold's deadline so the wall-clock expiry predicate
// sees it as lapsed without waiting out the TTL.
func lapseHold(t testing.TB, db *pgxpool.Pool, holdID string) {
	t.Helper()

	ct, err := db.Exec(context.Background(), `
		UPDATE holds
		SET expires_at = now() - interval '1 minute'
		WHERE id = $1
	`, holdID)
	require.NoError(t, err)
	require.EqualValues(t, 1, ct.RowsAffected())
}
