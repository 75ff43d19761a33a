package booking_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/booking"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"
)

type RoleLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type Handler struct {
	BookingService *booking.Service
	Users          RoleLookup
	Logger         *logger.Logger
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: caller=%s", caller))

	var req models.BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: invalid body: %v", err))
		utils.WriteError(w, apperrors.Wrap(apperrors.KindValidation, "invalid booking request", err))
		return
	}

	created, err := h.BookingService.Create(r.Context(), caller, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: %v", err))
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("booking created", created))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("GetBooking: bookingId=%s caller=%s", bookingID, caller))

	b, err := h.BookingService.Get(r.Context(), bookingID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if !h.mayView(r.Context(), caller, b) {
		utils.WriteError(w, apperrors.New(apperrors.KindForbidden, "booking belongs to another customer"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking", b))
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerEmail(r.Context())

	bookings, err := h.BookingService.ListForCustomer(r.Context(), caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings", bookings))
}

func (h *Handler) ListVendorBookings(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerEmail(r.Context())

	bookings, err := h.BookingService.ListForVendor(r.Context(), caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("bookings", bookings))
}

func (h *Handler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("AcceptBooking: bookingId=%s caller=%s", bookingID, caller))

	b, err := h.BookingService.Accept(r.Context(), caller, bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AcceptBooking: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking accepted", b))
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("RejectBooking: bookingId=%s caller=%s", bookingID, caller))

	b, err := h.BookingService.Reject(r.Context(), caller, bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RejectBooking: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("booking rejected", b))
}

// mayView allows the booking's customer, its vendor, and administrators.
func (h *Handler) mayView(ctx context.Context, caller string, b *models.Booking) bool {
	if caller == b.CustomerEmail || caller == b.VendorEmail {
		return true
	}
	user, err := h.Users.GetByEmail(ctx, caller)
	if err != nil {
		return false
	}
	return user.Role == models.RoleAdmin
}
