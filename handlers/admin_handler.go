package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"questNetAPI/internal/campaign"
	"questNetAPI/internal/owner"
	"questNetAPI/services"
)

type AdminHandler struct {
	campaignService *services.CampaignService
	ledgerService   *services.LedgerService
}

func NewAdminHandler(campaignService *services.CampaignService, ledgerService *services.LedgerService) *AdminHandler {
	return &AdminHandler{
		campaignService: campaignService,
		ledgerService:   ledgerService,
	}
}

// DecideCampaign approves or rejects a pending campaign.
func (h *AdminHandler) DecideCampaign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req campaign.AdminDecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		respondWithError(w, http.StatusBadRequest, "action must be 'approve' or 'reject'")
		return
	}

	found, err := h.campaignService.AdminDecide(ctx, req.PlaceID, req.Action == "approve")
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not update campaign")
		return
	}
	if !found {
		respondWithJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Campaign not found"})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// AddBalance credits an owner account, e.g. after an out-of-band purchase.
func (h *AdminHandler) AddBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req owner.AddBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OwnerID == 0 || req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "ownerId and a positive amount are required")
		return
	}

	kind := owner.BalanceKind(req.Kind)
	if req.Kind == "" {
		kind = owner.BalanceReal
	}
	if !kind.Valid() {
		respondWithError(w, http.StatusBadRequest, "kind must be 'real' or 'promotional'")
		return
	}

	if err := h.ledgerService.Credit(ctx, req.OwnerID, kind, req.Amount); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not credit balance")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
