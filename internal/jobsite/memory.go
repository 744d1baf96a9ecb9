package jobsite

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Lllllllleong/corpusocr/internal/models"
)

// MemoryStore keeps the job site state in memory. It backs local runs and
// tests, with the same process-completion rules as FirestoreStore.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*models.Job
	reports   map[string][]string
	corpora   map[string]*models.Corpus
	contents  map[string]*models.Content
	pageFiles map[string]map[string][]*models.File
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]*models.Job),
		reports:   make(map[string][]string),
		corpora:   make(map[string]*models.Corpus),
		contents:  make(map[string]*models.Content),
		pageFiles: make(map[string]map[string][]*models.File),
	}
}

func contentKey(corpusID, contentID string) string {
	return corpusID + "/" + contentID
}

// PutJob seeds a job, defaulting its status to pending.
func (s *MemoryStore) PutJob(j *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.Status == "" {
		j.Status = models.JobPending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	s.jobs[j.ID] = cloneJob(j)
}

// PutCorpus seeds a corpus.
func (s *MemoryStore) PutCorpus(c *models.Corpus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[c.ID] = cloneCorpus(c)
}

// PutContent seeds a content record.
func (s *MemoryStore) PutContent(c *models.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[contentKey(c.CorpusID, c.ID)] = cloneContent(c)
}

// Reports returns a copy of the report lines for a job.
func (s *MemoryStore) Reports(jobID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.reports[jobID]...)
}

// PageFiles returns the files attached to a page.
func (s *MemoryStore) PageFiles(corpusID, contentID, refNo string) []*models.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.File(nil), s.pageFiles[contentKey(corpusID, contentID)][refNo]...)
}

func (s *MemoryStore) LoadJob(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return cloneJob(j), nil
}

func (s *MemoryStore) SetStatus(_ context.Context, jobID string, status models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	j.Status = status
	return nil
}

func (s *MemoryStore) Report(_ context.Context, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	s.reports[jobID] = append(s.reports[jobID], message)
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, jobID string, status models.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	j.Status = status
	j.ErrorMsg = errMsg
	j.CompletedAt = time.Now().UTC()
	return nil
}

// AddProcess registers taskID. An id that already completed is not
// registered again, and completes the job if it was the last one running.
func (s *MemoryStore) AddProcess(_ context.Context, jobID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if slices.Contains(j.Processes, taskID) {
		return nil
	}
	if slices.Contains(j.CompletedProcesses, taskID) {
		if len(j.Processes) == 0 && j.Status == models.JobRunning {
			j.Status = models.JobComplete
			j.CompletedAt = time.Now().UTC()
		}
		return nil
	}
	j.Processes = append(j.Processes, taskID)
	return nil
}

// CompleteProcess moves taskID to the completed list. An id that was never
// registered is still remembered as completed so a late AddProcess skips it.
func (s *MemoryStore) CompleteProcess(_ context.Context, jobID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if slices.Contains(j.CompletedProcesses, taskID) {
		return nil
	}
	j.CompletedProcesses = append(j.CompletedProcesses, taskID)
	remaining, removed := removeProcess(j.Processes, taskID)
	if !removed {
		return nil
	}
	j.Processes = remaining
	if len(remaining) == 0 && j.Status == models.JobRunning {
		j.Status = models.JobComplete
		j.CompletedAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) LoadCorpus(_ context.Context, corpusID string) (*models.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpora[corpusID]
	if !ok {
		return nil, fmt.Errorf("corpus %s: %w", corpusID, ErrNotFound)
	}
	return cloneCorpus(c), nil
}

func (s *MemoryStore) SaveCorpus(_ context.Context, corpus *models.Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[corpus.ID] = cloneCorpus(corpus)
	return nil
}

func (s *MemoryStore) LoadContent(_ context.Context, corpusID, contentID string) (*models.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[contentKey(corpusID, contentID)]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", contentID, ErrNotFound)
	}
	return cloneContent(c), nil
}

// SavePageFile replaces any file with the same key on the page.
func (s *MemoryStore) SavePageFile(_ context.Context, corpusID, contentID, refNo string, file *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := contentKey(corpusID, contentID)
	if s.pageFiles[key] == nil {
		s.pageFiles[key] = make(map[string][]*models.File)
	}
	files := s.pageFiles[key][refNo]
	for i, f := range files {
		if f.Key == file.Key {
			files[i] = file
			return nil
		}
	}
	s.pageFiles[key][refNo] = append(files, file)
	return nil
}

// removeProcess drops taskID from ids, reporting whether it was present.
func removeProcess(ids []string, taskID string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	removed := false
	for _, id := range ids {
		if id == taskID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	return out, removed
}

// The store hands out copies so callers see the same isolation a remote
// store gives them.

func cloneJob(j *models.Job) *models.Job {
	c := *j
	c.Params = maps.Clone(j.Params)
	c.Processes = slices.Clone(j.Processes)
	c.CompletedProcesses = slices.Clone(j.CompletedProcesses)
	return &c
}

func cloneCorpus(corpus *models.Corpus) *models.Corpus {
	c := *corpus
	c.KVP = maps.Clone(corpus.KVP)
	return &c
}

func cloneContent(content *models.Content) *models.Content {
	c := *content
	c.PageFileCollections = maps.Clone(content.PageFileCollections)
	c.PageSets = maps.Clone(content.PageSets)
	return &c
}
