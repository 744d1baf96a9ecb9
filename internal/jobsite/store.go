package jobsite

import (
	"context"
	"errors"

	"github.com/Lllllllleong/corpusocr/internal/models"
)

// ErrNotFound is returned when a job, corpus or content record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence side of the job site: job lifecycle, the report
// log, sub-task tracking and the corpus records the OCR task touches.
type Store interface {
	LoadJob(ctx context.Context, jobID string) (*models.Job, error)
	SetStatus(ctx context.Context, jobID string, status models.JobStatus) error
	Report(ctx context.Context, jobID, message string) error
	Complete(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
	AddProcess(ctx context.Context, jobID, taskID string) error
	CompleteProcess(ctx context.Context, jobID, taskID string) error

	LoadCorpus(ctx context.Context, corpusID string) (*models.Corpus, error)
	SaveCorpus(ctx context.Context, corpus *models.Corpus) error
	LoadContent(ctx context.Context, corpusID, contentID string) (*models.Content, error)
	SavePageFile(ctx context.Context, corpusID, contentID, refNo string, file *models.File) error
}
