package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/linshen005/youtube-downloader-backend/internal/config"
	"github.com/linshen005/youtube-downloader-backend/internal/domain"
	errpkg "github.com/linshen005/youtube-downloader-backend/internal/errors"
	"github.com/linshen005/youtube-downloader-backend/internal/metrics"
	"github.com/linshen005/youtube-downloader-backend/internal/registry"
	"github.com/linshen005/youtube-downloader-backend/internal/storage"
	"github.com/linshen005/youtube-downloader-backend/internal/validation"
)

// MediaTool is the external download tool contract: given a URL and options it
// produces zero or more files in a target directory, or fails.
type MediaTool interface {
	FFmpegAvailable() bool
	FetchTitle(ctx context.Context, url string) (string, error)
	Download(ctx context.Context, url string, format domain.Format, destDir string, onProgress func(domain.ProgressEvent)) error
}

// DownloadService drives each download job from creation to a terminal state:
// it owns the job queue, the worker pool, progress mapping into the registry
// and finalization of output files.
type DownloadService struct {
	registry registry.JobRegistry
	files    *storage.FileStorage
	tool     MediaTool
	cfg      *config.Config

	queue     chan *downloadJob
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type downloadJob struct {
	id       string
	url      string
	format   domain.Format
	language string
}

// NewDownloadService creates the service and starts its worker pool.
func NewDownloadService(reg registry.JobRegistry, files *storage.FileStorage, tool MediaTool, cfg *config.Config) *DownloadService {
	s := &DownloadService{
		registry: reg,
		files:    files,
		tool:     tool,
		cfg:      cfg,
		queue:    make(chan *downloadJob, 100),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.dispatch()

	slog.Info("download service started", "workers", cfg.WorkerPoolSize)
	return s
}

// Start accepts a download request, registers a job record and enqueues the
// work. It returns the job id immediately; the outcome is observed by polling
// the registry. Audio requests fail fast here when ffmpeg is unavailable.
func (s *DownloadService) Start(url string, format domain.Format, language string) (string, error) {
	if url == "" {
		return "", errpkg.ErrEmptyURL
	}
	if format != domain.FormatMP3 && format != domain.FormatMP4 {
		return "", errpkg.ErrUnsupportedFormat
	}
	if format == domain.FormatMP3 && !s.tool.FFmpegAvailable() {
		return "", errpkg.ErrFFmpegMissing
	}

	id := uuid.New().String()
	s.registry.Create(id, language)

	job := &downloadJob{id: id, url: url, format: format, language: language}

	select {
	case s.queue <- job:
	case <-s.done:
		return "", fmt.Errorf("service is shutting down")
	}

	metrics.DownloadsStarted.Inc()
	slog.Info("download accepted",
		"download_id", id,
		"platform", validation.DetectPlatform(url),
		"format", format,
	)
	return id, nil
}

func (s *DownloadService) dispatch() {
	defer s.wg.Done()

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.WorkerPoolSize)

	for {
		select {
		case <-s.done:
			// Jobs still buffered in the queue will never be picked up;
			// fail them so no record is left stuck at starting.
			for {
				select {
				case job := <-s.queue:
					s.failJob(job, "service is shutting down")
				default:
					g.Wait()
					return
				}
			}
		case job := <-s.queue:
			g.Go(func() error {
				s.processJob(job)
				return nil
			})
		}
	}
}

// processJob runs one job to a terminal state. Every failure is absorbed into
// the registry record; a background job must never vanish without one.
func (s *DownloadService) processJob(job *downloadJob) {
	metrics.ActiveJobs.Inc()
	start := time.Now()

	defer func() {
		metrics.ActiveJobs.Dec()
		metrics.DownloadDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			slog.Error("panic in download job", "download_id", job.id, "panic", r)
			s.failJob(job, fmt.Sprintf("%v", r))
		}
	}()

	ctx := context.Background()

	tempDir := filepath.Join(s.cfg.TempDir, job.id)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		s.failJob(job, fmt.Sprintf("create temp directory: %v", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			slog.Warn("failed to remove temp directory", "download_id", job.id, "error", err)
		}
	}()

	title, err := s.tool.FetchTitle(ctx, job.url)
	if err != nil {
		s.failJob(job, err.Error())
		return
	}

	err = s.tool.Download(ctx, job.url, job.format, tempDir, func(event domain.ProgressEvent) {
		s.applyProgress(job, event)
	})
	if err != nil {
		s.failJob(job, err.Error())
		return
	}

	s.finalize(job, tempDir, title)
}

// finalize locates the tool's output, moves it into the shared directory under
// a collision-resistant name and marks the job completed. A clean tool exit
// without an output file is an error, not a success.
func (s *DownloadService) finalize(job *downloadJob, tempDir, title string) {
	source := findOutput(tempDir, title+job.format.Extension())
	if source == "" {
		s.failJob(job, domain.Message(job.language, domain.MsgNoFileFound))
		return
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	finalName := fmt.Sprintf("%d_%s_%s%s",
		time.Now().Unix(),
		shortID(job.id),
		safeBaseName(base),
		job.format.Extension(),
	)

	finalPath, err := s.files.Finalize(source, finalName)
	if err != nil {
		s.failJob(job, fmt.Sprintf("move file: %v", err))
		return
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		s.failJob(job, fmt.Sprintf("stat final file: %v", err))
		return
	}
	metrics.DownloadBytes.Add(float64(info.Size()))
	metrics.DownloadsCompleted.Inc()

	status := domain.StatusCompleted
	percent := "100%"
	message := domain.Message(job.language, domain.MsgCompleted)
	s.registry.Update(job.id, domain.JobUpdate{
		Status:  &status,
		Percent: &percent,
		Message: &message,
		Result: &domain.FileInfo{
			Name: finalName,
			Path: finalPath,
			Size: storage.FormatSize(info.Size()),
			URL:  "/api/download/" + finalName,
		},
	})

	slog.Info("download completed",
		"download_id", job.id,
		"file", finalName,
		"size", info.Size(),
	)
}

// applyProgress maps one tool callback onto the job record.
func (s *DownloadService) applyProgress(job *downloadJob, event domain.ProgressEvent) {
	switch event.Kind {
	case domain.ProgressDownloading:
		status := domain.StatusDownloading
		update := domain.JobUpdate{
			Status:     &status,
			Downloaded: &event.Downloaded,
			Speed:      &event.Speed,
			ETA:        &event.ETA,
		}
		if event.Total > 0 {
			update.Total = &event.Total
			percent := FormatPercent(event.Downloaded, event.Total)
			update.Percent = &percent
		}
		s.registry.Update(job.id, update)

	case domain.ProgressFinished:
		status := domain.StatusProcessing
		percent := "100%"
		message := domain.Message(job.language, domain.MsgProcessing)
		s.registry.Update(job.id, domain.JobUpdate{
			Status:  &status,
			Percent: &percent,
			Message: &message,
		})

	case domain.ProgressError:
		message := event.Message
		if message == "" {
			message = domain.Message(job.language, domain.MsgDownloadErr)
		}
		status := domain.StatusError
		s.registry.Update(job.id, domain.JobUpdate{
			Status:  &status,
			Message: &message,
		})
	}
}

func (s *DownloadService) failJob(job *downloadJob, message string) {
	metrics.DownloadsFailed.Inc()

	status := domain.StatusError
	s.registry.Update(job.id, domain.JobUpdate{
		Status:  &status,
		Message: &message,
	})

	slog.Error("download failed", "download_id", job.id, "url", job.url, "error", message)
}

// Shutdown stops accepting jobs and waits for in-flight jobs, bounded by ctx.
func (s *DownloadService) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("download service shutdown completed")
		return nil
	case <-ctx.Done():
		slog.Warn("download service shutdown timed out")
		return ctx.Err()
	}
}

// FormatPercent renders downloaded/total as a percentage with one decimal.
func FormatPercent(downloaded, total int64) string {
	return fmt.Sprintf("%.1f%%", float64(downloaded)/float64(total)*100)
}

// findOutput returns the tool's output file inside dir. The declared output
// template is checked first; tool version and remux behavior can change the
// actual name, so any regular file in the private directory is accepted as a
// fallback.
func findOutput(dir, expected string) string {
	if expected != "" && filepath.Base(expected) == expected {
		candidate := filepath.Join(dir, expected)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			return filepath.Join(dir, entry.Name())
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var unsafeNameRunes = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// safeBaseName narrows a title to the character set the file endpoints accept,
// so every finalized file stays retrievable. Uniqueness comes from the
// timestamp and id prefix, not from the title.
func safeBaseName(base string) string {
	base = unsafeNameRunes.ReplaceAllString(validation.SanitizeFilename(base), "_")
	base = strings.Trim(base, "_")
	if base == "" {
		return "download"
	}
	return base
}
