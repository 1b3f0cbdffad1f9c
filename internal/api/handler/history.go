package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/tubegrab/internal/domain"
	"github.com/iconidentify/tubegrab/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryHandler serves the download history endpoint.
type HistoryHandler struct {
	media  *service.MediaService
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(media *service.MediaService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{media: media, logger: logger}
}

// HistoryEntry is one record in the history response.
type HistoryEntry struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	Title     string    `json:"title,omitempty"`
	Format    string    `json:"format"`
	Quality   string    `json:"quality,omitempty"`
	Strategy  string    `json:"strategy"`
	Bytes     int64     `json:"bytes"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse contains recent download records.
type HistoryResponse struct {
	Downloads []HistoryEntry `json:"downloads"`
	Limit     int            `json:"limit"`
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := h.media.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryDisabled) {
			h.writeError(w, http.StatusServiceUnavailable, "download history is disabled")
			return
		}
		h.logger.Error("history query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	resp := HistoryResponse{
		Downloads: make([]HistoryEntry, 0, len(records)),
		Limit:     limit,
	}
	for _, rec := range records {
		resp.Downloads = append(resp.Downloads, HistoryEntry{
			ID:        rec.ID,
			SourceURL: rec.SourceURL,
			Title:     rec.Title,
			Format:    string(rec.Kind),
			Quality:   rec.Quality,
			Strategy:  rec.Strategy,
			Bytes:     rec.Bytes,
			Status:    rec.Status,
			Detail:    rec.Detail,
			CreatedAt: rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (h *HistoryHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
