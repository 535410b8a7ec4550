package api

import "github.com/nssukenkyu-prog/scc-reservation/internal/booking"

type BookingRequest struct {
	SlotID     string `json:"slotId"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	VisitType  string `json:"visitType"`
	Date       string `json:"date"`
	Email      string `json:"email"`
	LineUserID string `json:"lineUserId"`
}

type BookingResponse struct {
	Success     bool                 `json:"success"`
	Reservation *booking.Reservation `json:"reservation"`
}

type CancelRequest struct {
	SlotID        string `json:"slotId"`
	ReservationID string `json:"reservationId"`
	Date          string `json:"date"`
}

type GenerateRequest struct {
	Date string `json:"date"`
	Days int    `json:"days"`
}

type BlockRequest struct {
	SlotID string `json:"slotId"`
	Date   string `json:"date"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
