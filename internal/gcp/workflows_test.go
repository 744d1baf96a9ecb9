package gcp

import "testing"

func TestExecutionID(t *testing.T) {
	cases := map[string]string{
		"projects/p/locations/us-central1/workflows/ocr-page/executions/abc-123": "abc-123",
		"abc-123": "abc-123",
		"":        "",
	}
	for in, want := range cases {
		if got := ExecutionID(in); got != want {
			t.Errorf("ExecutionID(%q) = %q, want %q", in, got, want)
		}
	}
}
