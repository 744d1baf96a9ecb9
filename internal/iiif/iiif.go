// Package iiif talks to IIIF Image API servers hosting remote page images.
package iiif

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Lllllllleong/corpusocr/internal/models"
)

// MaxWidth caps the requested image width so the rendered image stays
// within what the OCR API accepts.
const MaxWidth = 1000

// Client probes IIIF identifiers over HTTP.
type Client struct {
	http *http.Client
}

// NewClient returns a Client using hc, or http.DefaultClient when hc is nil.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc}
}

// Probe reports whether the identifier answers its info.json with 200 OK.
// Transport failures return false along with the error.
func (c *Client) Probe(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, InfoURL(id), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build IIIF probe request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("IIIF probe failed: %w", err)
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// InfoURL is the info.json document that describes id.
func InfoURL(id string) string {
	return strings.TrimSuffix(id, "/") + "/info.json"
}

// Region renders the region segment of an image request.
func Region(fixed *models.Region) string {
	if fixed == nil {
		return "full"
	}
	return fmt.Sprintf("%d,%d,%d,%d", fixed.X, fixed.Y, fixed.W, fixed.H)
}

// DownloadURL builds a grayscale PNG request for id, at most MaxWidth wide.
// Widths that are unknown (zero or negative) request MaxWidth.
func DownloadURL(id string, width int, fixed *models.Region) string {
	if width <= 0 || width > MaxWidth {
		width = MaxWidth
	}
	return fmt.Sprintf("%s/%s/%d,/0/gray.png", strings.TrimSuffix(id, "/"), Region(fixed), width)
}
