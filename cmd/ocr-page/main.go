package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/corpusocr/internal/models"
	"github.com/Lllllllleong/corpusocr/internal/services"
)

var (
	pageInstance *services.OCRPageFunction
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Called once per page by the ocr-page-dispatch workflow.
	functions.HTTP("HandleOCRPage", handleOCRPage)
}

// main is required by the Go Functions Framework.
func main() {}

func handleOCRPage(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		pageInstance, initErr = services.NewOCRPage(context.Background())
	})
	if initErr != nil {
		slog.Error("CRITICAL: OCR page initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.PageOCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.JobID == "" || req.RefNo == "" {
		http.Error(w, "Bad Request: jobId and refNo are required", http.StatusBadRequest)
		return
	}

	res, err := pageInstance.Process(r.Context(), &req)
	if err != nil {
		// A 5xx lets the workflow retry the page.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
