package media

import (
	"strconv"
	"strings"

	"github.com/linshen005/youtube-downloader-backend/internal/domain"
)

// progressTemplate makes yt-dlp emit one machine-parseable line per progress
// tick instead of its human-oriented output. Missing values come out as "NA".
const progressTemplate = "PROGRESS|%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|%(progress.total_bytes_estimate)s|%(progress.speed)s|%(progress.eta)s"

const progressPrefix = "PROGRESS|"

// ParseProgressLine decodes one line of yt-dlp output produced by
// progressTemplate. Lines that do not match the template are ignored. Absent
// or unparseable numeric fields default to zero rather than failing.
func ParseProgressLine(line string) (domain.ProgressEvent, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, progressPrefix) {
		return domain.ProgressEvent{}, false
	}

	fields := strings.Split(line[len(progressPrefix):], "|")
	if len(fields) < 6 {
		return domain.ProgressEvent{}, false
	}

	status := fields[0]
	switch status {
	case "downloading":
		total := parseBytes(fields[2])
		if total == 0 {
			total = parseBytes(fields[3])
		}
		return domain.ProgressEvent{
			Kind:       domain.ProgressDownloading,
			Downloaded: parseBytes(fields[1]),
			Total:      total,
			Speed:      parseNumber(fields[4]),
			ETA:        parseBytes(fields[5]),
		}, true
	case "finished":
		return domain.ProgressEvent{Kind: domain.ProgressFinished}, true
	case "error":
		return domain.ProgressEvent{Kind: domain.ProgressError}, true
	default:
		return domain.ProgressEvent{}, false
	}
}

func parseBytes(s string) int64 {
	return int64(parseNumber(s))
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "null" || s == "None" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
