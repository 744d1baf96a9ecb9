package gcp

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// VisionClient wraps the Cloud Vision image annotator for document OCR.
type VisionClient struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionClient connects to the Cloud Vision image annotator.
func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision.NewImageAnnotatorClient: %w", err)
	}
	return &VisionClient{client: client}, nil
}

// DetectDocumentText runs DOCUMENT_TEXT_DETECTION on one image. The raw
// response is returned so callers see both the API error message and any
// partial annotation.
func (c *VisionClient) DetectDocumentText(ctx context.Context, img *visionpb.Image) (*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    img,
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}
	resp, err := c.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("BatchAnnotateImages: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("BatchAnnotateImages returned no responses")
	}
	return resp.GetResponses()[0], nil
}

func (c *VisionClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
