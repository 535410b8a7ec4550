package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "Date required")
			return
		}

		slots, err := svc.ListDay(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not load slots")
			return
		}
		if slots == nil {
			slots = []booking.Slot{}
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Could not parse JSON")
			return
		}

		if req.SlotID == "" || req.Name == "" || req.Phone == "" || req.VisitType == "" || req.Date == "" {
			writeError(w, http.StatusBadRequest, "Missing fields")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "slotId must be a valid UUID")
			return
		}

		visitType := booking.VisitType(req.VisitType)
		if !booking.ValidVisitType(visitType) {
			writeError(w, http.StatusBadRequest, "Invalid visitType")
			return
		}

		resv, err := svc.Book(r.Context(), booking.BookRequest{
			SlotID:         slotID,
			Date:           req.Date,
			Name:           req.Name,
			Phone:          req.Phone,
			Email:          req.Email,
			VisitType:      visitType,
			ExternalUserID: req.LineUserID,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BookingResponse{Success: true, Reservation: resv})
	}
}

func cancelHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Could not parse JSON")
			return
		}

		if req.SlotID == "" || req.ReservationID == "" || req.Date == "" {
			writeError(w, http.StatusBadRequest, "Missing fields")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "slotId must be a valid UUID")
			return
		}
		reservationID, err := uuid.Parse(req.ReservationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "reservationId must be a valid UUID")
			return
		}

		if err := svc.Cancel(r.Context(), slotID, reservationID, req.Date); err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "Slot not found")
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "Slot already booked")
	case errors.Is(err, booking.ErrMissingRowHandle):
		writeError(w, http.StatusInternalServerError, "Internal error: slot row handle missing")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "Slot not found")
	case errors.Is(err, booking.ErrMissingRowHandle):
		writeError(w, http.StatusInternalServerError, "Internal error: slot row handle missing")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}
