package models

// These structs define the JSON payloads exchanged between the job site, the
// per-page Cloud Workflow and the OCR Cloud Functions.

// OCRDocumentEvent is the CloudEvent data that starts an OCR job.
type OCRDocumentEvent struct {
	JobID string `json:"jobId"`
}

// PageOCRRequest is the input for the ocr-page function. The workflow fills in
// its own execution id, which is the sub-task id recorded on the job.
type PageOCRRequest struct {
	JobID       string `json:"jobId"`
	RefNo       string `json:"refNo"`
	ExecutionID string `json:"executionId,omitempty"`
}

// PageOCRResponse is the output of the ocr-page function.
type PageOCRResponse struct {
	Status    string   `json:"status"`
	RefNo     string   `json:"refNo"`
	Artifacts []string `json:"artifacts,omitempty"`
}
