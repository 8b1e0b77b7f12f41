package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/churchhub/platform-gateway/internal/repository"
	"github.com/rs/zerolog/log"
)

// PinnedItemStore is the persistence surface behind the pinned items
// endpoints, satisfied by repository.PinnedItemRepository.
type PinnedItemStore interface {
	ListByContact(ctx context.Context, contactID int, itemType models.PinnedItemType) ([]models.PinnedItem, error)
	Create(ctx context.Context, item *models.PinnedItem) error
	Delete(ctx context.Context, contactID int, itemType models.PinnedItemType, itemID string) error
	Reorder(ctx context.Context, id uuid.UUID, contactID int, sortOrder int) error
}

// PinnedItemsHandler serves the per-user pinned dashboard cards
type PinnedItemsHandler struct {
	sessions *Sessions
	repo     PinnedItemStore
}

// NewPinnedItemsHandler creates a new pinned items handler
func NewPinnedItemsHandler(sessions *Sessions, repo PinnedItemStore) *PinnedItemsHandler {
	return &PinnedItemsHandler{sessions: sessions, repo: repo}
}

// contactID resolves the signed-in user's contact id via the
// enriched session.
func (h *PinnedItemsHandler) contactID(w http.ResponseWriter, r *http.Request) (int, bool) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}
	id, err := strconv.Atoi(sess.ContactID)
	if err != nil {
		writeError(w, http.StatusForbidden, "no contact record for user")
		return 0, false
	}
	return id, true
}

// List returns the user's pinned items, optionally filtered by type
func (h *PinnedItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.contactID(w, r)
	if !ok {
		return
	}

	itemType := models.PinnedItemType(r.URL.Query().Get("itemType"))
	if itemType != "" && !itemType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid itemType")
		return
	}

	items, err := h.repo.ListByContact(r.Context(), contactID, itemType)
	if err != nil {
		log.Error().Err(err).Int("contact_id", contactID).Msg("Failed to list pinned items")
		writeError(w, http.StatusInternalServerError, "failed to list pinned items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create pins a new item for the user
func (h *PinnedItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.contactID(w, r)
	if !ok {
		return
	}

	var req models.CreatePinnedItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.ItemType.Valid() || req.ItemID == "" || req.Route == "" {
		writeError(w, http.StatusBadRequest, "itemType, itemId and route are required")
		return
	}

	item := &models.PinnedItem{
		ContactID: contactID,
		ItemType:  req.ItemType,
		ItemID:    req.ItemID,
		ItemData:  req.ItemData,
		Route:     req.Route,
	}
	if err := h.repo.Create(r.Context(), item); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusConflict, "item already pinned")
			return
		}
		log.Error().Err(err).Int("contact_id", contactID).Msg("Failed to create pinned item")
		writeError(w, http.StatusInternalServerError, "failed to pin item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type reorderRequest struct {
	SortOrder *int `json:"sortOrder"`
}

// Reorder moves a pinned item to a new position in the user's list
func (h *PinnedItemsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.contactID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SortOrder == nil || *req.SortOrder < 0 {
		writeError(w, http.StatusBadRequest, "sortOrder is required")
		return
	}

	if err := h.repo.Reorder(r.Context(), id, contactID, *req.SortOrder); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not pinned")
			return
		}
		log.Error().Err(err).Int("contact_id", contactID).Msg("Failed to reorder pinned item")
		writeError(w, http.StatusInternalServerError, "failed to reorder item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete unpins an item by type and id
func (h *PinnedItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.contactID(w, r)
	if !ok {
		return
	}

	itemType := models.PinnedItemType(chi.URLParam(r, "itemType"))
	itemID := chi.URLParam(r, "itemID")
	if !itemType.Valid() || itemID == "" {
		writeError(w, http.StatusBadRequest, "invalid item key")
		return
	}

	if err := h.repo.Delete(r.Context(), contactID, itemType, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not pinned")
			return
		}
		log.Error().Err(err).Int("contact_id", contactID).Msg("Failed to delete pinned item")
		writeError(w, http.StatusInternalServerError, "failed to unpin item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
