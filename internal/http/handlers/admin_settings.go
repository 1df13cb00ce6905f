package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// SettingsStore reads and writes runtime settings such as the bot's
// system prompt.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// AdminSettingsHandler manages runtime settings. Writes take effect on
// the next webhook without a restart.
type AdminSettingsHandler struct {
	store  SettingsStore
	logger *logging.Logger
}

func NewAdminSettingsHandler(store SettingsStore, logger *logging.Logger) *AdminSettingsHandler {
	if store == nil {
		panic("handlers: settings store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSettingsHandler{store: store, logger: logger}
}

// GetSetting returns a single setting value.
// GET /admin/settings/{key}
func (h *AdminSettingsHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, found, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("failed to read setting", "error", err, "key", key)
		writeJSONError(w, http.StatusInternalServerError, "failed to read setting")
		return
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, "setting not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// PutSetting upserts a setting value.
// PUT /admin/settings/{key}
func (h *AdminSettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Set(r.Context(), key, req.Value); err != nil {
		h.logger.Error("failed to write setting", "error", err, "key", key)
		writeJSONError(w, http.StatusInternalServerError, "failed to write setting")
		return
	}
	h.logger.Info("setting updated", "key", key)
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
