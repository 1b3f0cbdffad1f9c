package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iconidentify/tubegrab/internal/domain"
	"github.com/iconidentify/tubegrab/internal/service"
)

// MediaHandler handles the info and download endpoints.
type MediaHandler struct {
	media   *service.MediaService
	devMode bool
	logger  *slog.Logger
}

// NewMediaHandler creates a new media handler. devMode includes error
// detail in responses.
func NewMediaHandler(media *service.MediaService, devMode bool, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:   media,
		devMode: devMode,
		logger:  logger,
	}
}

// InfoRequest is the JSON request body for metadata lookups.
type InfoRequest struct {
	URL string `json:"url"`
}

// FormatEntry describes one quality tier in the info response.
type FormatEntry struct {
	Quality      string `json:"quality"`
	QualityLabel string `json:"qualityLabel,omitempty"`
	Format       string `json:"format"`
	HasAudio     bool   `json:"hasAudio,omitempty"`
	FPS          int    `json:"fps,omitempty"`
	Bitrate      int    `json:"bitrate,omitempty"`
	Filesize     int64  `json:"filesize,omitempty"`
}

// InfoResponse is the metadata lookup response.
type InfoResponse struct {
	Success      bool          `json:"success"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	Thumbnail    string        `json:"thumbnail"`
	Duration     int           `json:"duration"`
	VideoID      string        `json:"videoId"`
	VideoFormats []FormatEntry `json:"videoFormats"`
	AudioFormats []FormatEntry `json:"audioFormats"`
}

// Info handles POST /api/v1/info
func (h *MediaHandler) Info(w http.ResponseWriter, r *http.Request) {
	var req InfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	info, err := h.media.Info(r.Context(), req.URL)
	if err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, "invalid YouTube URL", "")
			return
		}
		h.logger.Error("info lookup failed", "url", req.URL, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to fetch video info", domain.ErrorDetail(err))
		return
	}

	resp := InfoResponse{
		Success:      true,
		Title:        info.Title,
		Author:       info.Author,
		Thumbnail:    info.Thumbnail,
		Duration:     info.Duration,
		VideoID:      info.VideoID,
		VideoFormats: make([]FormatEntry, 0, len(info.VideoTiers)),
		AudioFormats: make([]FormatEntry, 0, len(info.AudioTiers)),
	}
	for _, t := range info.VideoTiers {
		resp.VideoFormats = append(resp.VideoFormats, FormatEntry{
			Quality:      t.Quality,
			QualityLabel: t.QualityLabel,
			Format:       t.Format,
			HasAudio:     t.HasAudio,
			FPS:          t.FPS,
			Filesize:     t.Filesize,
		})
	}
	for _, t := range info.AudioTiers {
		resp.AudioFormats = append(resp.AudioFormats, FormatEntry{
			Quality:  t.Quality,
			Format:   t.Format,
			Bitrate:  t.Bitrate,
			Filesize: t.Filesize,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /api/v1/download
//
// Query parameters: url (required), format (audio|video, required),
// quality (optional, defaults to best), strategy (stream|file,
// defaults to stream).
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseMediaKind(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "format must be audio or video", "")
		return
	}

	req := domain.MediaRequest{
		SourceURL: r.URL.Query().Get("url"),
		Kind:      kind,
		Quality:   r.URL.Query().Get("quality"),
	}

	switch strategy := r.URL.Query().Get("strategy"); strategy {
	case "", "stream":
		h.downloadStream(w, r, req)
	case "file":
		h.downloadFile(w, r, req)
	default:
		h.writeError(w, http.StatusBadRequest, "strategy must be stream or file", "")
	}
}

// downloadStream resolves the direct media URL and pipes the transcoder
// output straight into the response. Nothing touches disk.
func (h *MediaHandler) downloadStream(w http.ResponseWriter, r *http.Request, req domain.MediaRequest) {
	plan, err := h.media.PrepareStream(r.Context(), req)
	if err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, "invalid YouTube URL", "")
			return
		}
		h.logger.Error("resolve failed", "url", req.SourceURL, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to resolve media", domain.ErrorDetail(err))
		return
	}

	w.Header().Set("Content-Type", req.Kind.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+plan.Filename+`"`)
	w.Header().Set("Cache-Control", "no-cache")

	n, err := h.media.StreamTranscode(r.Context(), req, plan.Locator.MediaURL, w)
	h.media.RecordOutcome(context.WithoutCancel(r.Context()), req, "stream", plan.Locator.Title, n, err)
	if err != nil {
		h.abortStream(w, r, err, n, "transcode failed")
		return
	}

	h.logger.Info("download complete",
		"url", req.SourceURL, "format", req.Kind, "strategy", "stream", "bytes", n)
}

// downloadFile runs the fallback pipeline: the extractor produces a
// finished file in scratch space, which is streamed and then deleted.
func (h *MediaHandler) downloadFile(w http.ResponseWriter, r *http.Request, req domain.MediaRequest) {
	sf, err := h.media.DownloadToScratch(r.Context(), req)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			h.writeError(w, http.StatusBadRequest, "invalid YouTube URL", "")
		case errors.Is(err, domain.ErrScratchFull):
			h.writeError(w, http.StatusInsufficientStorage, "not enough scratch space", "")
		default:
			h.logger.Error("fallback download failed", "url", req.SourceURL, "error", err)
			h.writeError(w, http.StatusInternalServerError, "download failed", domain.ErrorDetail(err))
		}
		return
	}
	defer sf.Close()

	filename := domain.SanitizeFilename(sf.Title, "download") + "." + req.Kind.Ext()
	w.Header().Set("Content-Type", req.Kind.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(sf.Size, 10))
	w.Header().Set("Cache-Control", "no-cache")

	n, err := io.Copy(w, sf)
	h.media.RecordOutcome(context.WithoutCancel(r.Context()), req, "file", sf.Title, n, err)
	if err != nil {
		h.abortStream(w, r, err, n, "file stream failed")
		return
	}

	h.logger.Info("download complete",
		"url", req.SourceURL, "format", req.Kind, "strategy", "file", "bytes", n)
}

// abortStream handles a failure after response headers may already be
// out. A client disconnect is routine and only logged. A failure
// mid-body aborts the connection so the client sees a truncated
// transfer instead of a silently corrupt file. A failure before the
// first byte still gets a proper error response.
func (h *MediaHandler) abortStream(w http.ResponseWriter, r *http.Request, err error, written int64, msg string) {
	if r.Context().Err() != nil {
		h.logger.Info("client disconnected", "url", r.URL.Path, "bytes", written)
		return
	}

	h.logger.Error(msg, "error", err, "bytes", written)
	if written > 0 {
		panic(http.ErrAbortHandler)
	}

	w.Header().Del("Content-Disposition")
	w.Header().Del("Content-Length")
	h.writeError(w, http.StatusInternalServerError, msg, domain.ErrorDetail(err))
}

func (h *MediaHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if h.devMode && detail != "" {
		body["details"] = detail
	}
	json.NewEncoder(w).Encode(body)
}
