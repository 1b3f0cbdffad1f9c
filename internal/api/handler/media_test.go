package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/domain"
	"github.com/iconidentify/tubegrab/internal/scratch"
	"github.com/iconidentify/tubegrab/internal/service"
)

func TestMediaHandler_Info(t *testing.T) {
	res := &stubResolver{info: &domain.VideoInfo{
		VideoID:   "dQw4w9WgXcQ",
		Title:     "Test Video",
		Author:    "Test Channel",
		Thumbnail: "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
		Duration:  212,
		VideoTiers: []domain.VideoTier{
			{Height: 720, Quality: "720p", QualityLabel: "720p", Format: "mp4", HasAudio: true, FPS: 30},
		},
		AudioTiers: []domain.AudioTier{
			{Quality: "128kbps", Format: "mp3", Bitrate: 128},
		},
	}}
	h := NewMediaHandler(newMediaService(t, res, &stubStreamer{}, nil), false, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/info",
		strings.NewReader(`{"url":"`+testURL+`"}`))
	w := httptest.NewRecorder()

	h.Info(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Title != "Test Video" || resp.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.VideoFormats) != 1 || resp.VideoFormats[0].Quality != "720p" {
		t.Errorf("video formats: %+v", resp.VideoFormats)
	}
	if len(resp.AudioFormats) != 1 || resp.AudioFormats[0].Bitrate != 128 {
		t.Errorf("audio formats: %+v", resp.AudioFormats)
	}
}

func TestMediaHandler_Info_BadBody(t *testing.T) {
	h := NewMediaHandler(newMediaService(t, &stubResolver{}, &stubStreamer{}, nil), false, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/info", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Info(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMediaHandler_Info_InvalidURL(t *testing.T) {
	h := NewMediaHandler(newMediaService(t, &stubResolver{}, &stubStreamer{}, nil), false, testLogger())

	for _, body := range []string{`{"url":""}`, `{"url":"https://vimeo.com/123"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/info", strings.NewReader(body))
		w := httptest.NewRecorder()

		h.Info(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
}

func TestMediaHandler_Info_ExtractorFailure(t *testing.T) {
	res := &stubResolver{err: domain.NewPipelineError("extract", "video unavailable", domain.ErrExtractionFailed)}

	t.Run("prod hides detail", func(t *testing.T) {
		h := NewMediaHandler(newMediaService(t, res, &stubStreamer{}, nil), false, testLogger())
		w := httptest.NewRecorder()
		h.Info(w, httptest.NewRequest(http.MethodPost, "/api/v1/info",
			strings.NewReader(`{"url":"`+testURL+`"}`)))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if _, ok := body["details"]; ok {
			t.Error("details should be hidden outside dev mode")
		}
	})

	t.Run("dev includes detail", func(t *testing.T) {
		h := NewMediaHandler(newMediaService(t, res, &stubStreamer{}, nil), true, testLogger())
		w := httptest.NewRecorder()
		h.Info(w, httptest.NewRequest(http.MethodPost, "/api/v1/info",
			strings.NewReader(`{"url":"`+testURL+`"}`)))

		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["details"] == "" {
			t.Error("details should be present in dev mode")
		}
	})
}

func TestMediaHandler_Download_BadParams(t *testing.T) {
	h := NewMediaHandler(newMediaService(t, &stubResolver{}, &stubStreamer{}, nil), false, testLogger())

	cases := []struct {
		name  string
		query string
	}{
		{"missing format", "url=" + testURL},
		{"bad format", "url=" + testURL + "&format=gif"},
		{"bad strategy", "url=" + testURL + "&format=audio&strategy=carrier-pigeon"},
		{"missing url", "format=audio"},
		{"foreign host", "url=https://vimeo.com/123&format=audio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/download?"+tc.query, nil)
			w := httptest.NewRecorder()
			h.Download(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestMediaHandler_Download_Stream(t *testing.T) {
	res := &stubResolver{locator: &domain.ResolvedLocator{
		MediaURL: "https://cdn.example.com/media",
		Title:    "My Song",
	}}
	str := &stubStreamer{payload: []byte("transcoded audio")}
	hist := &stubHistory{}
	h := NewMediaHandler(newMediaService(t, res, str, hist), false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=audio&quality=320", nil)
	w := httptest.NewRecorder()

	h.Download(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="My_Song.mp3"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Body.String() != "transcoded audio" {
		t.Errorf("body = %q", w.Body.String())
	}
	if len(hist.records) != 1 || hist.records[0].Status != domain.HistoryCompleted {
		t.Errorf("history records: %+v", hist.records)
	}
}

func TestMediaHandler_Download_StreamFailsBeforeFirstByte(t *testing.T) {
	res := &stubResolver{locator: &domain.ResolvedLocator{MediaURL: "https://cdn.example.com/m", Title: "t"}}
	str := &stubStreamer{err: domain.NewPipelineError("transcode", "boom", domain.ErrTranscodeFailed)}
	h := NewMediaHandler(newMediaService(t, res, str, nil), false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=audio", nil)
	w := httptest.NewRecorder()

	h.Download(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want json error", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != "" {
		t.Errorf("Content-Disposition should be cleared, got %q", got)
	}
}

func TestMediaHandler_Download_MidStreamFailureAborts(t *testing.T) {
	res := &stubResolver{locator: &domain.ResolvedLocator{MediaURL: "https://cdn.example.com/m", Title: "t"}}
	str := &stubStreamer{
		payload: []byte("partial"),
		err:     domain.NewPipelineError("transcode", "died mid-stream", domain.ErrTranscodeFailed),
	}
	hist := &stubHistory{}
	h := NewMediaHandler(newMediaService(t, res, str, hist), false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=video", nil)
	w := httptest.NewRecorder()

	defer func() {
		rec := recover()
		if rec != http.ErrAbortHandler {
			t.Errorf("panic = %v, want http.ErrAbortHandler", rec)
		}
		// The failure is still recorded before the connection is dropped.
		if len(hist.records) != 1 || hist.records[0].Status != domain.HistoryFailed {
			t.Errorf("history records: %+v", hist.records)
		}
	}()

	h.Download(w, req)
	t.Fatal("expected panic")
}

func TestMediaHandler_Download_File(t *testing.T) {
	res := &stubResolver{title: "Fallback Clip", fileBytes: []byte("finished mp4")}
	hist := &stubHistory{}
	h := NewMediaHandler(newMediaService(t, res, &stubStreamer{}, hist), false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=video&quality=720&strategy=file", nil)
	w := httptest.NewRecorder()

	h.Download(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Length"); got != "12" {
		t.Errorf("Content-Length = %q, want 12", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="Fallback_Clip.mp4"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Body.String() != "finished mp4" {
		t.Errorf("body = %q", w.Body.String())
	}
	if len(hist.records) != 1 || hist.records[0].Strategy != "file" {
		t.Errorf("history records: %+v", hist.records)
	}
}

func TestMediaHandler_Download_ScratchFull(t *testing.T) {
	dir, err := scratch.NewDir(filepath.Join(t.TempDir(), "scratch"), testLogger())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	svc := service.NewMediaService(&stubResolver{fileBytes: []byte("x")}, &stubStreamer{}, dir, nil,
		config.ScratchConfig{MinFreeBytes: 1 << 62}, testLogger())
	h := NewMediaHandler(svc, false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=audio&strategy=file", nil)
	w := httptest.NewRecorder()

	h.Download(w, req)

	if w.Code != http.StatusInsufficientStorage {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInsufficientStorage)
	}
}

func TestMediaHandler_Download_FileDownloadFails(t *testing.T) {
	res := &stubResolver{err: domain.NewPipelineError("download", "network error", domain.ErrDownloadFailed)}
	h := NewMediaHandler(newMediaService(t, res, &stubStreamer{}, nil), false, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/download?url="+testURL+"&format=audio&strategy=file", nil)
	w := httptest.NewRecorder()

	h.Download(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
