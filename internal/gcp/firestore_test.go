package gcp

import (
	"context"
	"testing"
)

func TestDatabaseID(t *testing.T) {
	cases := map[string]string{
		"":          "(default)",
		"(default)": "(default)",
		"jobsite":   "jobsite",
	}
	for in, want := range cases {
		if got := DatabaseID(in); got != want {
			t.Errorf("DatabaseID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewFirestoreClient_RequiresProject(t *testing.T) {
	if _, err := NewFirestoreClient(context.Background(), "", "jobsite"); err == nil {
		t.Error("expected error without a project id")
	}
}
