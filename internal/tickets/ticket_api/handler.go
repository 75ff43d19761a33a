package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/tickets"
	"ms-marketplace/internal/utils"
)

type Handler struct {
	TicketService *tickets.Service
	Logger        *logger.Logger
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateTicket: caller=%s", caller))

	var req models.TicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		utils.WriteError(w, apperrors.Wrap(apperrors.KindValidation, "invalid ticket request", err))
		return
	}

	created, err := h.TicketService.CreateTicket(r.Context(), caller, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("ticket created", created))
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("UpdateTicket: ticketId=%s caller=%s", ticketID, caller))

	// Unknown fields are rejected here instead of silently dropped; the
	// update struct is the entire mutable surface.
	var update models.TicketUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		utils.WriteError(w, apperrors.Wrap(apperrors.KindValidation, "invalid ticket update", err))
		return
	}

	updated, err := h.TicketService.UpdateTicket(r.Context(), caller, ticketID, update)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket updated", updated))
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("DeleteTicket: ticketId=%s caller=%s", ticketID, caller))

	if err := h.TicketService.DeleteTicket(r.Context(), caller, ticketID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteTicket: %v", err))
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	ticket, err := h.TicketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket", ticket))
}

// ListTickets returns the approved, visible listings customers can book.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.ListVisible(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tickets", list))
}

func (h *Handler) ListMyTickets(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerEmail(r.Context())

	list, err := h.TicketService.ListMine(r.Context(), caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tickets", list))
}
