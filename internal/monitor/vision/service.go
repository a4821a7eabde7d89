// Package vision wraps the multimodal model behind the two narrow
// operations the workflow needs: classify an image as a meter display and
// extract a reading from it.
package vision

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Extraction is the raw result of a reading extraction. Fields are nil when
// the model could not produce them; validation and acceptance happen in the
// extractor node.
type Extraction struct {
	Measurement *float64
	Date        *time.Time
	Confidence  *float64
}

// Service is the image-understanding collaborator consumed by the
// classifier and extractor nodes.
type Service interface {
	// Classify reports whether the image at imageURL depicts a meter display.
	Classify(ctx context.Context, imageURL string) (bool, error)

	// Extract reads the measurement and reading date off the meter image.
	// An unusable model response yields an empty Extraction, not an error.
	Extract(ctx context.Context, imageURL string) (Extraction, error)
}

// ChatModel is the slice of the eino chat-model surface this package uses.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}
