package services

import (
	"context"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/Lllllllleong/corpusocr/internal/models"
)

// TaskName identifies this plugin in provenance tags and reports.
const TaskName = "Google Cloud Vision"

// Job parameters, as registered with the job site.
const (
	ParamName       = "name"
	ParamCollection = "collection"
	ParamPageSet    = "pageset"
)

// AllPages is the page-set value meaning "every page in the collection".
const AllPages = "none"

// DefaultCreditsKey is the corpus kvp entry holding the remaining OCR credits.
const DefaultCreditsKey = "Google Cloud Vision OCR Credits"

// Dispatcher queues one asynchronous per-page OCR task and returns its id.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.PageOCRRequest) (string, error)
}

// TextDetector runs full-document text detection on an image.
type TextDetector interface {
	DetectDocumentText(ctx context.Context, img *visionpb.Image) (*visionpb.AnnotateImageResponse, error)
}

// IIIFProber checks that a IIIF identifier is being served.
type IIIFProber interface {
	Probe(ctx context.Context, id string) (bool, error)
}

// FileIngestor turns a local artifact into a provenance-tagged file handle.
type FileIngestor interface {
	Process(ctx context.Context, path, desc, provType, provID string) (*models.File, error)
}

// ProvenanceType is the provenance tag attached to every artifact a job writes.
func ProvenanceType(jobName string) string {
	return TaskName + " OCR Job (" + jobName + ")"
}
