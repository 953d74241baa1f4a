package errors

import "errors"

var (
	ErrEmptyURL          = errors.New("url is required")
	ErrUnsupportedFormat = errors.New("unsupported format, expected mp3 or mp4")
	ErrFFmpegMissing     = errors.New("ffmpeg not installed, cannot convert to mp3")
	ErrUnsafeFilename    = errors.New("unsafe filename")
	ErrFileNotFound      = errors.New("file not found")
)
