// Package media is the boundary to the external yt-dlp and ffmpeg tools. The
// service implements no codec or protocol logic itself; everything here is
// subprocess invocation and output parsing.
package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/linshen005/youtube-downloader-backend/internal/domain"
)

// Tool invokes yt-dlp to resolve and download media.
type Tool struct {
	ytdlpPath       string
	ffmpegAvailable bool
	metadataTimeout time.Duration
	downloadTimeout time.Duration
}

type toolInfo struct {
	Title string `json:"title"`
}

// NewTool builds a Tool around the given yt-dlp binary. The ffmpeg probe runs
// once here; audio requests are rejected up front when it fails.
func NewTool(ytdlpPath, ffmpegPath string, metadataTimeout, downloadTimeout time.Duration) *Tool {
	_, err := exec.LookPath(ffmpegPath)
	if err != nil {
		slog.Warn("ffmpeg not found, mp3 conversion disabled", "path", ffmpegPath, "error", err)
	}

	return &Tool{
		ytdlpPath:       ytdlpPath,
		ffmpegAvailable: err == nil,
		metadataTimeout: metadataTimeout,
		downloadTimeout: downloadTimeout,
	}
}

// FFmpegAvailable reports whether the startup ffmpeg probe succeeded.
func (t *Tool) FFmpegAvailable() bool {
	return t.ffmpegAvailable
}

// FetchTitle resolves the media title for a URL without downloading anything.
func (t *Tool) FetchTitle(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.metadataTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ytdlpPath, "-J", "--no-warnings", "--no-playlist", "--skip-download", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp metadata error: %v | %s", err, strings.TrimSpace(stderr.String()))
	}

	var info toolInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return "", fmt.Errorf("yt-dlp metadata parse error: %w", err)
	}

	if info.Title == "" {
		return "video", nil
	}
	return info.Title, nil
}

// Download fetches the media at url into destDir in the requested format,
// reporting progress through onProgress as yt-dlp emits it. The output
// template leaves files named after the media title inside destDir.
func (t *Tool) Download(ctx context.Context, url string, format domain.Format, destDir string, onProgress func(domain.ProgressEvent)) error {
	ctx, cancel := context.WithTimeout(ctx, t.downloadTimeout)
	defer cancel()

	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--progress-template", progressTemplate,
		"-o", filepath.Join(destDir, "%(title)s.%(ext)s"),
	}

	if format == domain.FormatMP3 {
		args = append(args,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
		)
	} else {
		args = append(args,
			"-f", "bestvideo+bestaudio/best",
			"--merge-output-format", "mp4",
		)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, t.ytdlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach yt-dlp stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if event, ok := ParseProgressLine(scanner.Text()); ok {
			onProgress(event)
		}
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("yt-dlp error: %s", lastLine(detail))
	}
	return nil
}

// lastLine trims multi-line tool diagnostics to their final line, which is
// where yt-dlp puts the actual error.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
