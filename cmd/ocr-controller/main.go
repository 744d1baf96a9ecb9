package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/corpusocr/internal/models"
	"github.com/Lllllllleong/corpusocr/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	controllerInstance *services.OCRControllerFunction
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered when the job site queues a Google Cloud Vision job.
	functions.CloudEvent("OCRDocument", ocrDocument)
}

// main is required by the Go Functions Framework.
func main() {}

func ocrDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		controllerInstance, initErr = services.NewOCRController(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var event models.OCRDocumentEvent
	if err := json.Unmarshal(e.Data(), &event); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Failures are already reported on the job; returning marks the invocation failed.
	return controllerInstance.Process(ctx, event)
}
