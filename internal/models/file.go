package models

import "time"

// File is an ingested artifact attached to a page, with its provenance.
type File struct {
	Key            string    `firestore:"key" json:"key"`
	Path           string    `firestore:"path" json:"path"`
	Basename       string    `firestore:"basename" json:"basename"`
	Extension      string    `firestore:"extension" json:"extension"`
	ByteSize       int64     `firestore:"byteSize" json:"byteSize"`
	Hash           string    `firestore:"hash" json:"hash"`
	Description    string    `firestore:"description" json:"description"`
	ProvenanceType string    `firestore:"provenanceType" json:"provenanceType"`
	ProvenanceID   string    `firestore:"provenanceId" json:"provenanceId"`
	URI            string    `firestore:"uri,omitempty" json:"uri,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`
}
