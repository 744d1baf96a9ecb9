package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/Lllllllleong/corpusocr/internal/gcp"
	"github.com/Lllllllleong/corpusocr/internal/iiif"
	"github.com/Lllllllleong/corpusocr/internal/imaging"
	"github.com/Lllllllleong/corpusocr/internal/ingest"
	"github.com/Lllllllleong/corpusocr/internal/jobsite"
	"github.com/Lllllllleong/corpusocr/internal/models"
	"github.com/Lllllllleong/corpusocr/internal/ocr"
	"golang.org/x/sync/errgroup"
)

const (
	// FileSizeLimit is the largest local image sent to the OCR API as is.
	FileSizeLimit int64 = 9500000
	// DownsizedWidth is the width oversized local images are scaled to.
	DownsizedWidth = 3000
)

// OCRPageConfig holds configuration for the ocr-page function.
type OCRPageConfig struct {
	ProjectID       string
	JobsCollection  string
	DatabaseID      string
	ArtifactsBucket string
	ContentRoot     string
}

// OCRPageFunction OCRs a single page and attaches the results to it.
type OCRPageFunction struct {
	store    jobsite.Store
	detector TextDetector
	prober   IIIFProber
	ingestor FileIngestor
	config   OCRPageConfig
}

type artifact struct {
	path string
	desc string
	data []byte
}

func loadPageConfig() (*OCRPageConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return &OCRPageConfig{
		ProjectID:       projectID,
		JobsCollection:  gcp.GetEnv("JOBS_COLLECTION", "jobs"),
		DatabaseID:      gcp.GetEnv("FIRESTORE_DATABASE", ""),
		ArtifactsBucket: gcp.GetEnv("ARTIFACTS_BUCKET", ""),
		ContentRoot:     gcp.GetEnv("CONTENT_ROOT", ""),
	}, nil
}

// NewOCRPage creates a new OCRPageFunction instance.
func NewOCRPage(ctx context.Context) (*OCRPageFunction, error) {
	config, err := loadPageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, config.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	visionClient, err := gcp.NewVisionClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	var uploader ingest.Uploader
	if config.ArtifactsBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		uploader = gcp.NewGCSUploader(storageClient, config.ArtifactsBucket)
	}

	return &OCRPageFunction{
		store:    jobsite.NewFirestoreStore(firestoreClient, config.JobsCollection),
		detector: visionClient,
		prober:   iiif.NewClient(&http.Client{Timeout: 15 * time.Second}),
		ingestor: ingest.New(uploader, config.ContentRoot),
		config:   *config,
	}, nil
}

// Process handles one page task sent by the dispatch workflow.
func (f *OCRPageFunction) Process(ctx context.Context, req *models.PageOCRRequest) (*models.PageOCRResponse, error) {
	job, err := jobsite.Load(ctx, f.store, req.JobID)
	if err != nil {
		slog.Error("Failed to load job", "jobId", req.JobID, "refNo", req.RefNo, "error", err)
		return nil, err
	}
	return f.Run(ctx, job, req.RefNo, req.ExecutionID)
}

// Run OCRs refNo and, unless something failed, signals taskID as finished.
// Pages that cannot be OCRed (no descriptor, missing file, dead IIIF id) are
// skipped and still count as finished.
func (f *OCRPageFunction) Run(ctx context.Context, job *jobsite.Job, refNo, taskID string) (*models.PageOCRResponse, error) {
	logCtx := slog.With("jobId", job.ID, "refNo", refNo, "executionId", taskID)
	logCtx.Info("Starting page OCR.")

	attached, err := f.ocrPage(ctx, logCtx, job, refNo)
	if err != nil {
		logCtx.Error("Page OCR failed", "error", err)
		job.Report(ctx, fmt.Sprintf("Page %s could not be OCRed: %v", refNo, err))
		return nil, err
	}

	if taskID != "" {
		if err := job.CompleteProcess(ctx, taskID); err != nil {
			logCtx.Error("Failed to signal task completion", "error", err)
			return nil, err
		}
	}

	res := &models.PageOCRResponse{Status: "success", RefNo: refNo, Artifacts: attached}
	if len(attached) == 0 {
		res.Status = "skipped"
	}
	logCtx.Info("Page OCR complete.", "status", res.Status, "artifactCount", len(attached))
	return res, nil
}

func (f *OCRPageFunction) ocrPage(ctx context.Context, logCtx *slog.Logger, job *jobsite.Job, refNo string) ([]string, error) {
	collectionKey := job.Param(ParamCollection)
	collection, ok := job.Content.PageFileCollections[collectionKey]
	if !ok {
		return nil, fmt.Errorf("page file collection %q not found", collectionKey)
	}

	pageFile, ok := collection.Lookup(refNo)
	if !ok {
		logCtx.Debug("No page file for this ref number. Skipping.")
		return nil, nil
	}

	pageDir := ocr.PageDir(job.Content.Path, refNo)
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create page directory %s: %w", pageDir, err)
	}

	if !pageFile.IsIIIF() && !fileExists(pageFile.Path) {
		logCtx.Warn("Local page image missing. Skipping.", "path", pageFile.Path)
		return nil, nil
	}

	img, err := f.resolveImage(ctx, logCtx, job, refNo, pageDir, pageFile)
	if err != nil || img == nil {
		return nil, err
	}

	resp, err := f.detector.DetectDocumentText(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("document text detection failed: %w", err)
	}
	if msg := resp.GetError().GetMessage(); msg != "" {
		job.Report(ctx, fmt.Sprintf("Page %s triggered an API error: %s", refNo, msg))
	}

	return f.saveArtifacts(ctx, logCtx, job, refNo, resp.GetFullTextAnnotation())
}

// resolveImage builds the image to send: a URL for IIIF pages, the file bytes
// (downsized when too large) for local pages. A nil image means the page is
// skipped.
func (f *OCRPageFunction) resolveImage(ctx context.Context, logCtx *slog.Logger, job *jobsite.Job, refNo, pageDir string, pageFile models.PageFile) (*visionpb.Image, error) {
	if pageFile.IsIIIF() {
		live, err := f.prober.Probe(ctx, pageFile.Path)
		if err != nil {
			logCtx.Warn("IIIF probe failed", "iiifId", pageFile.Path, "error", err)
		}
		if !live {
			job.Report(ctx, fmt.Sprintf("Page %s has an unresponsive IIIF identifier. Cannot perform OCR.", refNo))
			return nil, nil
		}
		downloadURL := iiif.DownloadURL(pageFile.Path, pageFile.Width, pageFile.IIIFInfo.FixedRegion)
		job.Report(ctx, fmt.Sprintf("Performing OCR on page %s (%s)", refNo, downloadURL))
		return &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: downloadURL}}, nil
	}

	path := pageFile.Path
	job.Report(ctx, fmt.Sprintf("Performing OCR on page %s (%s)", refNo, strings.TrimPrefix(path, job.Content.Path)))

	if byteSize(pageFile) > FileSizeLimit {
		job.Report(ctx, fmt.Sprintf("Page %s is too large. Downsizing image...", refNo))
		smallPath := imaging.DownsizedPath(pageDir, path)
		if _, err := imaging.Downsize(path, smallPath, DownsizedWidth); err != nil {
			logCtx.Warn("Downsizing failed. Sending the original image.", "error", err)
		} else if fileExists(smallPath) {
			path = smallPath
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image %s: %w", path, err)
	}
	return &visionpb.Image{Content: content}, nil
}

// saveArtifacts writes the text, HTML and JSON outputs, ingests them and
// attaches every successfully ingested file to the page.
func (f *OCRPageFunction) saveArtifacts(ctx context.Context, logCtx *slog.Logger, job *jobsite.Job, refNo string, ann *visionpb.TextAnnotation) ([]string, error) {
	jobName := job.Param(ParamName)
	base := ocr.ResultBase(job.Content.Path, refNo, jobName)

	annJSON, err := ocr.MarshalAnnotation(ann)
	if err != nil {
		return nil, fmt.Errorf("failed to serialise annotation: %w", err)
	}
	outputs := []artifact{
		{path: base + ".txt", desc: "Plain Text", data: []byte(ann.GetText())},
		{path: base + ".html", desc: "HTML", data: []byte(ocr.RenderHTML(ann))},
		{path: base + ".json", desc: "JSON", data: annJSON},
	}
	for _, out := range outputs {
		if err := os.WriteFile(out.path, out.data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", out.path, err)
		}
	}

	provType := ProvenanceType(jobName)
	files := make([]*models.File, len(outputs))
	errs := make([]error, len(outputs))
	var eg errgroup.Group
	for i, out := range outputs {
		eg.Go(func() error {
			file, err := f.ingestor.Process(ctx, out.path, out.desc, provType, job.ID)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", out.desc, err)
				return errs[i]
			}
			files[i] = file
			return nil
		})
	}
	// An artifact that fails to ingest is left unattached; the others proceed.
	if eg.Wait() != nil {
		logCtx.Error("Failed to ingest page artifacts", "error", errors.Join(errs...))
	}

	var attached []string
	for _, file := range files {
		if file == nil {
			continue
		}
		if err := job.SavePageFile(ctx, refNo, file); err != nil {
			return attached, err
		}
		attached = append(attached, file.Path)
	}
	return attached, nil
}

func byteSize(pf models.PageFile) int64 {
	if pf.ByteSize > 0 {
		return pf.ByteSize
	}
	if info, err := os.Stat(pf.Path); err == nil {
		return info.Size()
	}
	return 0
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
