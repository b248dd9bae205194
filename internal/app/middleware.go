package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyUserId    = contextKey("userID")
	ContextKeyUserEmail = contextKey("userEmail")
	ContextKeyLogger    = contextKey("logger")
)

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := app.logger.With("request_id", chimiddleware.GetReqID(r.Context()))

		ctx := context.WithValue(r.Context(), ContextKeyLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuthentication validates the Bearer token issued by the auth
// service and injects the subject (user id) and email claims into the
// request context. Identity management itself lives outside this service.
func (app *Application) requireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}

			return []byte(app.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		subject, err := claims.GetSubject()
		if err != nil {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		userID, err := uuid.Parse(subject)
		if err != nil {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserId, userID)

		if email, ok := claims["email"].(string); ok {
			ctx = context.WithValue(ctx, ContextKeyUserEmail, email)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *Application) contextGetUserId(r *http.Request) uuid.UUID {
	userID, ok := r.Context().Value(ContextKeyUserId).(uuid.UUID)
	if !ok {
		panic("missing user id from context")
	}

	return userID
}

func (app *Application) contextGetUserEmail(r *http.Request) string {
	email, _ := r.Context().Value(ContextKeyUserEmail).(string)

	return email
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(ContextKeyLogger).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}
