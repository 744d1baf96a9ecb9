package jobsite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/corpusocr/internal/models"
)

// Job is the context handed to the OCR procedures: the job record, the
// corpus and content it targets, and the store that persists changes.
type Job struct {
	*models.Job
	Corpus  *models.Corpus
	Content *models.Content

	store  Store
	logger *slog.Logger
}

// Load reads the job and the corpus and content it points at.
func Load(ctx context.Context, store Store, jobID string) (*Job, error) {
	job, err := store.LoadJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	corpus, err := store.LoadCorpus(ctx, job.CorpusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", job.CorpusID, err)
	}
	content, err := store.LoadContent(ctx, job.CorpusID, job.ContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content %s: %w", job.ContentID, err)
	}
	return &Job{
		Job:     job,
		Corpus:  corpus,
		Content: content,
		store:   store,
		logger:  slog.With("jobId", job.ID, "corpusId", job.CorpusID, "contentId", job.ContentID),
	}, nil
}

// Param returns the value of a job parameter, or "" when unset.
func (j *Job) Param(name string) string {
	return j.Params[name]
}

// SetStatus persists a non-terminal status change.
func (j *Job) SetStatus(ctx context.Context, status models.JobStatus) error {
	if err := j.store.SetStatus(ctx, j.ID, status); err != nil {
		return fmt.Errorf("failed to set job status to %s: %w", status, err)
	}
	j.Status = status
	return nil
}

// Report appends a human readable line to the job report. A failed write is
// logged rather than returned so reporting never aborts the work it describes.
func (j *Job) Report(ctx context.Context, message string) {
	j.logger.Info("Job report.", "message", message)
	if err := j.store.Report(ctx, j.ID, message); err != nil {
		j.logger.Error("Failed to append job report", "error", err)
	}
}

// Complete moves the job to a terminal status.
func (j *Job) Complete(ctx context.Context, status models.JobStatus, errMsg string) error {
	if err := j.store.Complete(ctx, j.ID, status, errMsg); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	j.Status = status
	j.ErrorMsg = errMsg
	return nil
}

// AddProcess records a dispatched sub-task id against the job. The store
// owns the process lists; j.Processes stays as loaded.
func (j *Job) AddProcess(ctx context.Context, taskID string) error {
	if err := j.store.AddProcess(ctx, j.ID, taskID); err != nil {
		return fmt.Errorf("failed to register task %s: %w", taskID, err)
	}
	return nil
}

// CompleteProcess signals that a sub-task finished.
func (j *Job) CompleteProcess(ctx context.Context, taskID string) error {
	if err := j.store.CompleteProcess(ctx, j.ID, taskID); err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	return nil
}

// SaveCorpus persists the corpus key/value store.
func (j *Job) SaveCorpus(ctx context.Context) error {
	if err := j.store.SaveCorpus(ctx, j.Corpus); err != nil {
		return fmt.Errorf("failed to save corpus %s: %w", j.Corpus.ID, err)
	}
	return nil
}

// SavePageFile attaches an ingested file to a page of the job's content.
func (j *Job) SavePageFile(ctx context.Context, refNo string, file *models.File) error {
	if err := j.store.SavePageFile(ctx, j.CorpusID, j.ContentID, refNo, file); err != nil {
		return fmt.Errorf("failed to save page file for page %s: %w", refNo, err)
	}
	return nil
}
