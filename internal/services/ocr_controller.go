package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/corpusocr/internal/gcp"
	"github.com/Lllllllleong/corpusocr/internal/jobsite"
	"github.com/Lllllllleong/corpusocr/internal/models"
	"github.com/pkg/errors"
)

// DefaultIIIFThrottle spaces out dispatches for IIIF-backed collections so
// the page workers do not hammer the remote image server.
const DefaultIIIFThrottle = 3 * time.Second

// OCRControllerConfig holds configuration for the ocr-controller function.
type OCRControllerConfig struct {
	ProjectID        string
	JobsCollection   string
	DatabaseID       string
	WorkflowLocation string
	WorkflowID       string
	CreditsKey       string
	IIIFThrottle     time.Duration
}

// OCRControllerFunction fans an OCR job out into one task per page.
type OCRControllerFunction struct {
	store      jobsite.Store
	dispatcher Dispatcher
	config     OCRControllerConfig
	pause      func(ctx context.Context, d time.Duration) error
}

func loadControllerConfig() (*OCRControllerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	throttle, err := time.ParseDuration(gcp.GetEnv("IIIF_THROTTLE", DefaultIIIFThrottle.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid IIIF_THROTTLE: %w", err)
	}
	return &OCRControllerConfig{
		ProjectID:        projectID,
		JobsCollection:   gcp.GetEnv("JOBS_COLLECTION", "jobs"),
		DatabaseID:       gcp.GetEnv("FIRESTORE_DATABASE", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "ocr-page-dispatch"),
		CreditsKey:       gcp.GetEnv("CREDITS_KEY", DefaultCreditsKey),
		IIIFThrottle:     throttle,
	}, nil
}

// NewOCRController creates a new OCRControllerFunction instance.
func NewOCRController(ctx context.Context) (*OCRControllerFunction, error) {
	config, err := loadControllerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, config.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	dispatcher, err := gcp.NewWorkflowDispatcher(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow dispatcher: %w", err)
	}

	slog.Info("OCR controller initialized.", "workflowId", config.WorkflowID)
	return newOCRController(jobsite.NewFirestoreStore(firestoreClient, config.JobsCollection), dispatcher, *config), nil
}

func newOCRController(store jobsite.Store, dispatcher Dispatcher, config OCRControllerConfig) *OCRControllerFunction {
	if config.CreditsKey == "" {
		config.CreditsKey = DefaultCreditsKey
	}
	return &OCRControllerFunction{
		store:      store,
		dispatcher: dispatcher,
		config:     config,
		pause:      wait,
	}
}

// Process loads the job named by the event and runs it.
func (f *OCRControllerFunction) Process(ctx context.Context, e models.OCRDocumentEvent) error {
	if e.JobID == "" {
		return fmt.Errorf("event carries no jobId")
	}
	job, err := jobsite.Load(ctx, f.store, e.JobID)
	if err != nil {
		slog.Error("Failed to load job", "jobId", e.JobID, "error", err)
		return err
	}
	return f.Run(ctx, job)
}

// Run marks the job running and dispatches its pages. Any failure is
// reported on the job and leaves it in the error state.
func (f *OCRControllerFunction) Run(ctx context.Context, job *jobsite.Job) error {
	if err := job.SetStatus(ctx, models.JobRunning); err != nil {
		return err
	}
	if err := f.fanOutSafely(ctx, job); err != nil {
		return f.handleError(ctx, job, err)
	}
	return nil
}

func (f *OCRControllerFunction) fanOutSafely(ctx context.Context, job *jobsite.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic during OCR fan-out: %v", r)
		}
	}()
	return f.fanOut(ctx, job)
}

func (f *OCRControllerFunction) fanOut(ctx context.Context, job *jobsite.Job) error {
	logCtx := slog.With("jobId", job.ID, "corpusId", job.CorpusID, "contentId", job.ContentID)

	collectionKey := job.Param(ParamCollection)
	pageSetKey := job.Param(ParamPageSet)
	collection, ok := job.Content.PageFileCollections[collectionKey]
	if !ok {
		return errors.Errorf("page file collection %q not found on content %s", collectionKey, job.ContentID)
	}

	iiifImages := firstPageIsIIIF(collection)
	refNos := ResolveRefNos(collection, job.Content.PageSets, pageSetKey)
	numPages := len(refNos)

	credits, hasCredits := job.Corpus.Credits(f.config.CreditsKey)
	if !admit(credits, hasCredits, numPages) {
		job.Report(ctx, "Either this corpus has no more Google Cloud Vision OCR credits, or no valid pages found to OCR.")
		logCtx.Warn("OCR job not admitted.", "pageCount", numPages, "credits", credits, "hasCredits", hasCredits)
		return errors.WithStack(job.Complete(ctx, models.JobComplete, ""))
	}

	job.Report(ctx, fmt.Sprintf("Attempting to OCR %d pages for page file collection %s.", numPages, collectionKey))
	if !isAllPages(pageSetKey) {
		job.Report(ctx, fmt.Sprintf("Limiting pages to those found in page set %s.", job.Content.PageSets[pageSetKey].Label))
	}

	for i, refNo := range refNos {
		taskID, err := f.dispatcher.Dispatch(ctx, models.PageOCRRequest{JobID: job.ID, RefNo: refNo})
		if err != nil {
			return errors.Wrapf(err, "failed to dispatch OCR for page %s", refNo)
		}
		if err := job.AddProcess(ctx, taskID); err != nil {
			return errors.WithStack(err)
		}
		credits--
		job.Corpus.SetCredits(f.config.CreditsKey, credits)
		logCtx.Info("Dispatched page.", "refNo", refNo, "taskId", taskID, "creditsLeft", credits)

		if iiifImages && i < numPages-1 {
			if err := f.pause(ctx, f.config.IIIFThrottle); err != nil {
				return errors.Wrap(err, "interrupted while throttling IIIF dispatch")
			}
		}
	}

	if err := job.SaveCorpus(ctx); err != nil {
		return errors.WithStack(err)
	}
	logCtx.Info("OCR fan-out complete.", "pageCount", numPages, "iiif", iiifImages)
	return nil
}

func (f *OCRControllerFunction) handleError(ctx context.Context, job *jobsite.Job, originalErr error) error {
	trace := failureTrace(originalErr)
	slog.Error("OCR job failed", "jobId", job.ID, "error", originalErr)
	job.Report(ctx, trace)
	if err := job.Complete(ctx, models.JobError, trace); err != nil {
		slog.Error("CRITICAL: Failed to mark job as failed after a processing error.", "jobId", job.ID, "updateError", err)
	}
	return originalErr
}

// failureTrace puts the one-line error first, followed by the causes and
// stack frames pkg/errors records.
func failureTrace(err error) string {
	return err.Error() + "\n\n" + fmt.Sprintf("%+v", err)
}

// firstPageIsIIIF looks only at the first page of the collection: a batch is
// throttled as a whole when that page is IIIF-backed.
func firstPageIsIIIF(collection models.PageFileCollection) bool {
	refNos := collection.Ordered()
	if len(refNos) == 0 {
		return false
	}
	pf, _ := collection.Lookup(refNos[0])
	return pf.IsIIIF()
}

// ResolveRefNos lists the pages to OCR in collection order. With no page set
// every page is used; an unknown page set selects nothing.
func ResolveRefNos(collection models.PageFileCollection, pageSets map[string]models.PageSet, pageSetKey string) []string {
	if isAllPages(pageSetKey) {
		return collection.Ordered()
	}
	pageSet, ok := pageSets[pageSetKey]
	if !ok {
		return nil
	}
	var refNos []string
	for _, refNo := range collection.Ordered() {
		if pageSet.Contains(refNo) {
			refNos = append(refNos, refNo)
		}
	}
	return refNos
}

func isAllPages(pageSetKey string) bool {
	return pageSetKey == "" || pageSetKey == AllPages
}

// admit is the only quota check: the whole batch must fit in the credits.
func admit(credits int, hasCredits bool, numPages int) bool {
	return hasCredits && numPages > 0 && numPages <= credits
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
