package services

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/Lllllllleong/corpusocr/internal/jobsite"
	"github.com/Lllllllleong/corpusocr/internal/models"
)

const (
	testCorpus     = "corpus-1"
	testContent    = "doc-1"
	testJob        = "job-1"
	testCollection = "scans"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []models.PageOCRRequest
	failOn   string
	panicOn  string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req models.PageOCRRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if req.RefNo == d.panicOn {
		panic("dispatcher exploded")
	}
	if req.RefNo == d.failOn {
		return "", fmt.Errorf("workflow quota exceeded")
	}
	d.requests = append(d.requests, req)
	return fmt.Sprintf("exec-%d", len(d.requests)), nil
}

func (d *fakeDispatcher) refNos() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, r := range d.requests {
		out = append(out, r.RefNo)
	}
	return out
}

type fakeDetector struct {
	mu     sync.Mutex
	images []*visionpb.Image
	resp   *visionpb.AnnotateImageResponse
	err    error
}

func (d *fakeDetector) DetectDocumentText(_ context.Context, img *visionpb.Image) (*visionpb.AnnotateImageResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.images = append(d.images, img)
	if d.err != nil {
		return nil, d.err
	}
	if d.resp == nil {
		return &visionpb.AnnotateImageResponse{}, nil
	}
	return d.resp, nil
}

type fakeProber struct {
	live   bool
	probed []string
}

func (p *fakeProber) Probe(_ context.Context, id string) (bool, error) {
	p.probed = append(p.probed, id)
	return p.live, nil
}

// collection builds a page file collection in the given order.
func collection(pages map[string]models.PageFile, order ...string) models.PageFileCollection {
	return models.PageFileCollection{Label: "Scans", PageFiles: pages, OrderedRefNos: order}
}

func localPages(refNos ...string) map[string]models.PageFile {
	pages := make(map[string]models.PageFile)
	for _, refNo := range refNos {
		pages[refNo] = models.PageFile{Path: "/corpus/files/" + refNo + ".png", ByteSize: 1000}
	}
	return pages
}

// newStore seeds a running job over one content with the given collection.
func newStore(t *testing.T, contentPath string, col models.PageFileCollection, params map[string]string, credits any) *jobsite.MemoryStore {
	t.Helper()
	store := jobsite.NewMemoryStore()
	if params == nil {
		params = map[string]string{}
	}
	if _, ok := params[ParamCollection]; !ok {
		params[ParamCollection] = testCollection
	}
	store.PutJob(&models.Job{
		ID:        testJob,
		TaskName:  TaskName,
		CorpusID:  testCorpus,
		ContentID: testContent,
		Params:    params,
	})
	kvp := map[string]any{}
	if credits != nil {
		kvp[DefaultCreditsKey] = credits
	}
	store.PutCorpus(&models.Corpus{ID: testCorpus, KVP: kvp})
	store.PutContent(&models.Content{
		ID:                  testContent,
		CorpusID:            testCorpus,
		Path:                contentPath,
		PageFileCollections: map[string]models.PageFileCollection{testCollection: col},
		PageSets: map[string]models.PageSet{
			"odd": {Label: "Odd pages", RefNos: []string{"99", "3", "1"}},
		},
	})
	return store
}

func loadJob(t *testing.T, store jobsite.Store) *jobsite.Job {
	t.Helper()
	job, err := jobsite.Load(context.Background(), store, testJob)
	if err != nil {
		t.Fatalf("jobsite.Load() error = %v", err)
	}
	return job
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
