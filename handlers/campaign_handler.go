package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"questNetAPI/internal/campaign"
	"questNetAPI/middleware"
	"questNetAPI/services"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
}

func NewCampaignHandler(campaignService *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// GetDashboard serves the in-game admin panel: balances, API key, campaign state.
func (h *CampaignHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ownerID, err := strconv.ParseInt(r.URL.Query().Get("ownerId"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'ownerId' is required")
		return
	}
	// placeId is optional; without it the dashboard only shows balances.
	placeID, _ := strconv.ParseInt(r.URL.Query().Get("placeId"), 10, 64)

	dashboard, err := h.campaignService.Dashboard(ctx, ownerID, placeID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *CampaignHandler) RegisterCampaign(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req campaign.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OwnerID == 0 || req.PlaceID == 0 {
		respondWithError(w, http.StatusBadRequest, "ownerId and placeId are required")
		return
	}

	result, err := h.campaignService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not register campaign")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *CampaignHandler) BuyVisits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req campaign.BuyVisitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OwnerID == 0 || req.PlaceID == 0 {
		respondWithError(w, http.StatusBadRequest, "ownerId and placeId are required")
		return
	}

	result, err := h.campaignService.PurchaseVisits(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not purchase visits")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
