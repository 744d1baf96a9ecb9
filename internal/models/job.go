package models

import (
	"math"
	"time"
)

// JobStatus is the lifecycle state of a job as tracked by the job site.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobError    JobStatus = "error"
)

// Job represents one execution of the OCR task in Firestore.
// Report lines live in a subcollection, not on the record itself.
type Job struct {
	ID                 string            `firestore:"-" json:"id"`
	TaskName           string            `firestore:"taskName,omitempty" json:"taskName"`
	CorpusID           string            `firestore:"corpusId,omitempty" json:"corpusId"`
	ContentID          string            `firestore:"contentId,omitempty" json:"contentId"`
	Params             map[string]string `firestore:"params,omitempty" json:"params"`
	Status             JobStatus         `firestore:"status,omitempty" json:"status"`
	ErrorMsg           string            `firestore:"errorMsg,omitempty" json:"errorMsg,omitempty"`
	Processes          []string          `firestore:"processes,omitempty" json:"processes,omitempty"`
	CompletedProcesses []string          `firestore:"completedProcesses,omitempty" json:"completedProcesses,omitempty"`
	CreatedAt          time.Time         `firestore:"createdAt,omitempty" json:"createdAt"`
	CompletedAt        time.Time         `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Corpus holds the corpus-level key/value store. Usage quotas are kept there.
type Corpus struct {
	ID  string         `firestore:"-" json:"id"`
	KVP map[string]any `firestore:"kvp" json:"kvp"`
}

// Credits reads an integer counter from the kvp map. Firestore hands numbers
// back as int64 or float64 depending on how they were written; a fractional
// value is not a valid counter.
func (c *Corpus) Credits(key string) (int, bool) {
	if c == nil || c.KVP == nil {
		return 0, false
	}
	switch v := c.KVP[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// SetCredits stores n under key.
func (c *Corpus) SetCredits(key string, n int) {
	if c.KVP == nil {
		c.KVP = make(map[string]any)
	}
	c.KVP[key] = int64(n)
}
