package moderation_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/moderation"
	"ms-marketplace/internal/utils"
)

type Handler struct {
	ModerationService *moderation.Service
	Logger            *logger.Logger
}

func (h *Handler) ApproveTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("ApproveTicket: ticketId=%s caller=%s", ticketID, caller))

	if err := h.ModerationService.ApproveTicket(r.Context(), caller, ticketID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ApproveTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket approved", nil))
}

func (h *Handler) RejectTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("RejectTicket: ticketId=%s caller=%s", ticketID, caller))

	if err := h.ModerationService.RejectTicket(r.Context(), caller, ticketID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RejectTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket rejected", nil))
}

func (h *Handler) SetAdvertised(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	caller := auth.CallerEmail(r.Context())

	var req struct {
		Advertised bool `json:"advertised"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Wrap(apperrors.KindValidation, "invalid advertise request", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("SetAdvertised: ticketId=%s advertised=%t caller=%s", ticketID, req.Advertised, caller))

	if err := h.ModerationService.SetAdvertised(r.Context(), caller, ticketID, req.Advertised); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SetAdvertised: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("advertisement flag updated", nil))
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	caller := auth.CallerEmail(r.Context())

	var req struct {
		Role models.Role `json:"role"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Wrap(apperrors.KindValidation, "invalid role request", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("SetUserRole: email=%s role=%s caller=%s", email, req.Role, caller))

	if err := h.ModerationService.SetUserRole(r.Context(), caller, email, req.Role); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SetUserRole: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("role updated", nil))
}

func (h *Handler) MarkVendorFraud(w http.ResponseWriter, r *http.Request) {
	vendorEmail := chi.URLParam(r, "email")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("MarkVendorFraud: vendor=%s caller=%s", vendorEmail, caller))

	if err := h.ModerationService.MarkVendorFraud(r.Context(), caller, vendorEmail); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MarkVendorFraud: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("vendor marked fraudulent", nil))
}
