package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"questNetAPI/internal/quest"
	"questNetAPI/services"
)

type QuestHandler struct {
	questService       *services.QuestService
	eligibilityService *services.EligibilityService
}

func NewQuestHandler(questService *services.QuestService, eligibilityService *services.EligibilityService) *QuestHandler {
	return &QuestHandler{
		questService:       questService,
		eligibilityService: eligibilityService,
	}
}

// GetAvailableQuests lists the campaigns advertisable to one player.
func (h *QuestHandler) GetAvailableQuests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	playerID, err := strconv.ParseInt(r.URL.Query().Get("playerId"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'playerId' is required")
		return
	}

	quests, err := h.eligibilityService.AvailableQuests(ctx, playerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load available quests")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "quests": quests})
}

func (h *QuestHandler) StartQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req quest.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == 0 || req.DestinationPlaceID == 0 || req.SourcePlaceID == 0 {
		respondWithError(w, http.StatusBadRequest, "playerId, sourcePlaceId and destinationPlaceId are required")
		return
	}

	result, err := h.questService.Start(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not start quest")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *QuestHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req quest.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.questService.ConfirmArrival(ctx, req.Token)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not verify token")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *QuestHandler) CheckTraffic(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req quest.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.questService.PollDwell(ctx, req.Token)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not check traffic")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *QuestHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req quest.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.questService.CompleteAction(ctx, req.Token)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not complete task")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *QuestHandler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req quest.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == 0 || req.CurrentPlaceID == 0 {
		respondWithError(w, http.StatusBadRequest, "playerId and currentPlaceId are required")
		return
	}

	result, err := h.questService.Claim(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not claim rewards")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
