package jobsite

import (
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/corpusocr/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore persists the job site in Firestore:
//
//	jobs/{jobId}                                   job record
//	jobs/{jobId}/reports/{auto}                    report lines
//	corpora/{corpusId}                             corpus kvp
//	corpora/{corpusId}/documents/{contentId}       content and page collections
//	.../documents/{contentId}/pages/{ref}/files/{key}  ingested page files
type FirestoreStore struct {
	client         *firestore.Client
	jobsCollection string
}

// NewFirestoreStore returns a store on client. Jobs live in jobsCollection,
// "jobs" when empty.
func NewFirestoreStore(client *firestore.Client, jobsCollection string) *FirestoreStore {
	if jobsCollection == "" {
		jobsCollection = "jobs"
	}
	return &FirestoreStore{client: client, jobsCollection: jobsCollection}
}

func (s *FirestoreStore) jobRef(jobID string) *firestore.DocumentRef {
	return s.client.Collection(s.jobsCollection).Doc(jobID)
}

func (s *FirestoreStore) corpusRef(corpusID string) *firestore.DocumentRef {
	return s.client.Collection("corpora").Doc(corpusID)
}

func (s *FirestoreStore) contentRef(corpusID, contentID string) *firestore.DocumentRef {
	return s.corpusRef(corpusID).Collection("documents").Doc(contentID)
}

func (s *FirestoreStore) get(ctx context.Context, ref *firestore.DocumentRef, dest any) error {
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", ref.Path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ref.Path, err)
	}
	if err := snap.DataTo(dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", ref.Path, err)
	}
	return nil
}

func (s *FirestoreStore) LoadJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.get(ctx, s.jobRef(jobID), &job); err != nil {
		return nil, err
	}
	job.ID = jobID
	return &job, nil
}

func (s *FirestoreStore) SetStatus(ctx context.Context, jobID string, st models.JobStatus) error {
	_, err := s.jobRef(jobID).Update(ctx, []firestore.Update{
		{Path: "status", Value: st},
	})
	return err
}

func (s *FirestoreStore) Report(ctx context.Context, jobID, message string) error {
	_, _, err := s.jobRef(jobID).Collection("reports").Add(ctx, map[string]any{
		"message":   message,
		"createdAt": time.Now().UTC(),
	})
	return err
}

// Reports lists a job's report lines in the order they were written.
func (s *FirestoreStore) Reports(ctx context.Context, jobID string) ([]string, error) {
	it := s.jobRef(jobID).Collection("reports").OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer it.Stop()

	var lines []string
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list reports for job %s: %w", jobID, err)
		}
		if msg, ok := snap.Data()["message"].(string); ok {
			lines = append(lines, msg)
		}
	}
	return lines, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, jobID string, st models.JobStatus, errMsg string) error {
	updates := []firestore.Update{
		{Path: "status", Value: st},
		{Path: "completedAt", Value: time.Now().UTC()},
	}
	if errMsg != "" {
		updates = append(updates, firestore.Update{Path: "errorMsg", Value: errMsg})
	}
	_, err := s.jobRef(jobID).Update(ctx, updates)
	return err
}

// AddProcess registers taskID unless the task already reported completion,
// in which case the job is completed if nothing else is still running.
func (s *FirestoreStore) AddProcess(ctx context.Context, jobID, taskID string) error {
	ref := s.jobRef(jobID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		job, err := readJob(tx, ref)
		if err != nil {
			return err
		}
		if slices.Contains(job.Processes, taskID) {
			return nil
		}
		if slices.Contains(job.CompletedProcesses, taskID) {
			if len(job.Processes) == 0 && job.Status == models.JobRunning {
				return tx.Update(ref, completion())
			}
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "processes", Value: firestore.ArrayUnion(taskID)},
		})
	})
}

// CompleteProcess moves taskID to completedProcesses and completes a running
// job once its last process is done. A task that finishes before it was
// registered is still recorded as completed.
func (s *FirestoreStore) CompleteProcess(ctx context.Context, jobID, taskID string) error {
	ref := s.jobRef(jobID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		job, err := readJob(tx, ref)
		if err != nil {
			return err
		}
		if slices.Contains(job.CompletedProcesses, taskID) {
			return nil
		}
		updates := []firestore.Update{
			{Path: "completedProcesses", Value: firestore.ArrayUnion(taskID)},
		}
		remaining, removed := removeProcess(job.Processes, taskID)
		if removed {
			updates = append(updates, firestore.Update{Path: "processes", Value: firestore.ArrayRemove(taskID)})
			if len(remaining) == 0 && job.Status == models.JobRunning {
				updates = append(updates, completion()...)
			}
		}
		return tx.Update(ref, updates)
	})
}

func readJob(tx *firestore.Transaction, ref *firestore.DocumentRef) (*models.Job, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", ref.ID, err)
	}
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", ref.ID, err)
	}
	return &job, nil
}

func completion() []firestore.Update {
	return []firestore.Update{
		{Path: "status", Value: models.JobComplete},
		{Path: "completedAt", Value: time.Now().UTC()},
	}
}

func (s *FirestoreStore) LoadCorpus(ctx context.Context, corpusID string) (*models.Corpus, error) {
	var corpus models.Corpus
	if err := s.get(ctx, s.corpusRef(corpusID), &corpus); err != nil {
		return nil, err
	}
	corpus.ID = corpusID
	return &corpus, nil
}

func (s *FirestoreStore) SaveCorpus(ctx context.Context, corpus *models.Corpus) error {
	_, err := s.corpusRef(corpus.ID).Update(ctx, []firestore.Update{
		{Path: "kvp", Value: corpus.KVP},
	})
	return err
}

func (s *FirestoreStore) LoadContent(ctx context.Context, corpusID, contentID string) (*models.Content, error) {
	var content models.Content
	if err := s.get(ctx, s.contentRef(corpusID, contentID), &content); err != nil {
		return nil, err
	}
	content.ID = contentID
	content.CorpusID = corpusID
	return &content, nil
}

func (s *FirestoreStore) SavePageFile(ctx context.Context, corpusID, contentID, refNo string, file *models.File) error {
	ref := s.contentRef(corpusID, contentID).Collection("pages").Doc(refNo).Collection("files").Doc(file.Key)
	_, err := ref.Set(ctx, file)
	return err
}
