package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linshen005/youtube-downloader-backend/internal/domain"
	errpkg "github.com/linshen005/youtube-downloader-backend/internal/errors"
	"github.com/linshen005/youtube-downloader-backend/internal/metrics"
	"github.com/linshen005/youtube-downloader-backend/internal/registry"
	"github.com/linshen005/youtube-downloader-backend/internal/storage"
	"github.com/linshen005/youtube-downloader-backend/internal/validation"
)

// DownloadServiceI defines the job-creation side of the download service.
type DownloadServiceI interface {
	Start(url string, format domain.Format, language string) (string, error)
}

// SweeperI defines the on-demand retention sweep.
type SweeperI interface {
	Sweep() ([]string, error)
	SweepOlderThan(maxAge time.Duration) ([]string, error)
}

// DownloadHandler handles HTTP requests for downloads and files.
type DownloadHandler struct {
	service   DownloadServiceI
	registry  registry.JobRegistry
	files     *storage.FileStorage
	sweeper   SweeperI
	validator *validator.Validate
	logger    *slog.Logger
}

// NewDownloadHandler creates a DownloadHandler with the provided collaborators.
func NewDownloadHandler(service DownloadServiceI, reg registry.JobRegistry, files *storage.FileStorage, sweeper SweeperI, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		service:   service,
		registry:  reg,
		files:     files,
		sweeper:   sweeper,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateDownload handles POST /api/download.
func (h *DownloadHandler) CreateDownload(w http.ResponseWriter, r *http.Request) {
	var req domain.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.Start(req.URL, req.Format, requestLanguage(r))
	if err != nil {
		switch {
		case errors.Is(err, errpkg.ErrEmptyURL),
			errors.Is(err, errpkg.ErrUnsupportedFormat),
			errors.Is(err, errpkg.ErrFFmpegMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to start download", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, domain.DownloadResponse{
		Success:    true,
		DownloadID: id,
	})
}

// GetProgress handles GET /api/progress/{downloadID}. Unknown ids return the
// not_found sentinel rather than an error; polling must never fail.
func (h *DownloadHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "downloadID")
	writeJSON(w, http.StatusOK, h.registry.Get(id))
}

// GetFile handles GET /api/download/{filename}.
func (h *DownloadHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !validation.IsSafeFilename(name) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path, err := h.files.Resolve(name)
	if err != nil {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if _, err := h.files.Stat(name); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	metrics.FilesServed.Inc()
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// ListFiles handles GET /api/files.
func (h *DownloadHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List()
	if err != nil {
		h.logger.Error("failed to list files", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	entries := make([]domain.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, domain.FileEntry{
			Name: f.Name,
			Size: storage.FormatSize(f.Size),
			Date: f.Modified.Format("2006-01-02 15:04:05"),
			URL:  "/api/download/" + f.Name,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// DeleteFile handles DELETE /api/files/{filename}.
func (h *DownloadHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !validation.IsSafeFilename(name) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	if err := h.files.Delete(name); err != nil {
		switch {
		case errors.Is(err, errpkg.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, errpkg.ErrUnsafeFilename):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			h.logger.Error("failed to delete file", "file", name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("file deleted", "file", name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "File deleted",
	})
}

// TriggerCleanup handles POST /api/cleanup, running one synchronous sweep.
// An optional max_age_hours query parameter overrides the configured age.
func (h *DownloadHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	var (
		deleted []string
		err     error
	)

	if raw := r.URL.Query().Get("max_age_hours"); raw != "" {
		hours, parseErr := strconv.Atoi(raw)
		if parseErr != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "max_age_hours must be a positive integer")
			return
		}
		deleted, err = h.sweeper.SweepOlderThan(time.Duration(hours) * time.Hour)
	} else {
		deleted, err = h.sweeper.Sweep()
	}

	if err != nil {
		h.logger.Error("manual sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}

// requestLanguage picks the message language from the Accept-Language header.
func requestLanguage(r *http.Request) string {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Accept-Language")), "zh") {
		return "zh"
	}
	return "en"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
