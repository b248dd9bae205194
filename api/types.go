// Package api holds the request and response types of the booking API.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type SeatRef struct {
	Row    string `json:"row" validate:"required,seat_row"`
	Number int    `json:"number" validate:"required,min=1"`
}

type TicketTypeCount struct {
	Type  string `json:"type" validate:"required,ticket_type"`
	Count int    `json:"count" validate:"required,min=1"`
}

type CreateHoldRequest struct {
	Seats       []SeatRef         `json:"seats" validate:"required,min=1,max=10,dive"`
	TicketTypes []TicketTypeCount `json:"ticketTypes" validate:"required,min=1,dive"`
}

type HoldResponse struct {
	HoldId    string    `json:"holdId"`
	SessionId string    `json:"sessionId"`
	Seats     []SeatRef `json:"seats"`
	ExpiresAt time.Time `json:"expiresAt"`
	HoldTime  int       `json:"holdTime"`
}

type PaymentDetails struct {
	CardNumber   string `json:"cardNumber,omitempty"`
	CardName     string `json:"cardName,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
	Cvv          string `json:"cvv,omitempty"`
	Installments int    `json:"installments,omitempty"`
}

type CreateBookingRequest struct {
	HoldId         string          `json:"holdId" validate:"required,uuid"`
	PaymentMethod  string          `json:"paymentMethod" validate:"required,payment_method"`
	PaymentDetails *PaymentDetails `json:"paymentDetails,omitempty"`
	TotalAmount    decimal.Decimal `json:"totalAmount" validate:"required"`
	PromotionCode  *string         `json:"promotionCode,omitempty"`
}

type BookingResponse struct {
	PaymentId  string          `json:"paymentId"`
	PurchaseId string          `json:"purchaseId"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	PixCode    *string         `json:"pixCode,omitempty"`
	PixQrCode  *string         `json:"pixQrCode,omitempty"`
}

type PixWebhookRequest struct {
	PixCode string `json:"pixCode" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=COMPLETED FAILED"`
}

type PaymentStatusResponse struct {
	PaymentId string `json:"paymentId"`
	Status    string `json:"status"`
}

type PaymentDetailsResponse struct {
	PaymentId string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Status    string          `json:"status"`
	Tickets   []Ticket        `json:"tickets"`
}

type Ticket struct {
	TicketId   string          `json:"ticketId"`
	PurchaseId string          `json:"purchaseId"`
	SessionId  string          `json:"sessionId"`
	MovieTitle string          `json:"movieTitle"`
	StartsAt   time.Time       `json:"startsAt"`
	Type       string          `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Seat       SeatRef         `json:"seat"`
	Status     string          `json:"status"`
}

type TicketListResponse struct {
	Tickets []Ticket `json:"tickets"`
}

type QRCodeResponse struct {
	TicketId string `json:"ticketId"`
	QrCode   string `json:"qrCode"`
}

type Seat struct {
	Row       string `json:"row"`
	Number    int    `json:"number"`
	Available bool   `json:"available"`
}

type SeatRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	SessionId  string    `json:"sessionId"`
	MovieTitle string    `json:"movieTitle"`
	StartsAt   time.Time `json:"startsAt"`
	SeatRows   []SeatRow `json:"seatRows"`
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Env     string `json:"env"`
	Version string `json:"version"`
}
