package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/corpusocr/internal/models"
)

// WorkflowDispatcher queues per-page OCR tasks as Cloud Workflows
// executions. The workflow calls the ocr-page function with the payload.
type WorkflowDispatcher struct {
	client *executions.Client
	parent string
}

// NewWorkflowDispatcher returns a dispatcher for the given workflow.
func NewWorkflowDispatcher(ctx context.Context, projectID, location, workflowID string) (*WorkflowDispatcher, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowDispatcher: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowDispatcher{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// Dispatch starts one execution and returns its id as the task id.
func (d *WorkflowDispatcher) Dispatch(ctx context.Context, req models.PageOCRRequest) (string, error) {
	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := d.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: d.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create workflow execution: %w", err)
	}
	return ExecutionID(exec.GetName()), nil
}

func (d *WorkflowDispatcher) Close() error {
	return d.client.Close()
}

// ExecutionID extracts the trailing id from a full execution resource name.
func ExecutionID(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
