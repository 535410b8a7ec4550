package api

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
)

// blockLabel is the display name written on administrative holds. The hold
// itself is signalled by the explicit Block flag, not by this string.
const blockLabel = "ブロック"

func adminToken(password string) string {
	return base64.StdEncoding.EncodeToString([]byte("admin:" + password))
}

func adminLoginHandler(password string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Could not parse JSON")
			return
		}

		if password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) != 1 {
			writeError(w, http.StatusUnauthorized, "Invalid password")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Success: true, Token: adminToken(password)})
	}
}

// adminAuthMiddleware guards the admin routes with the bearer token issued by
// the login endpoint.
func adminAuthMiddleware(password string) func(http.Handler) http.Handler {
	expected := adminToken(password)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if password == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func generateSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Could not parse JSON")
			return
		}

		if req.Date == "" {
			writeError(w, http.StatusBadRequest, "Date required")
			return
		}

		result, err := svc.GenerateDays(r.Context(), req.Date, req.Days)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not generate slots")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// blockSlotHandler removes a slot from patient availability: the rows are
// written like a normal booking, calendar and email are suppressed.
func blockSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Could not parse JSON")
			return
		}

		if req.SlotID == "" || req.Date == "" {
			writeError(w, http.StatusBadRequest, "Missing fields")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "slotId must be a valid UUID")
			return
		}

		resv, err := svc.Book(r.Context(), booking.BookRequest{
			SlotID:    slotID,
			Date:      req.Date,
			Name:      blockLabel,
			Phone:     "-",
			VisitType: booking.VisitShared,
			Block:     true,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BookingResponse{Success: true, Reservation: resv})
	}
}
