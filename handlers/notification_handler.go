package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"questNetAPI/internal/notification"
	"questNetAPI/middleware"
	"questNetAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
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
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notificationService.GetNotifications(ctx, ownerID, unreadOnly)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not load notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": notifications})
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.notificationService.MarkAllAsRead(ctx, ownerID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not mark notifications read")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OwnerID == 0 || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "ownerId and token are required")
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, &req); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not register device")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
