package registry

import "github.com/linshen005/youtube-downloader-backend/internal/domain"

// JobRegistry defines keyed access to job progress records.
type JobRegistry interface {
	Create(id, language string)
	Update(id string, update domain.JobUpdate)
	Get(id string) domain.Job
}
