// Package ocr adapts the external text-extraction engine behind a typed
// boundary. The pipeline only ever sees ordered text fragments with
// confidence scores; raw engine responses are validated here and malformed
// ones fail fast instead of leaking into pipeline logic.
package ocr

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// ErrNoText is returned when the engine detects zero text fragments.
// Averaging confidence over zero fragments is undefined, so the condition is
// surfaced explicitly rather than reported as a zero-confidence result.
var ErrNoText = errors.New("no text detected in document")

// Fragment is one line of detected text with its confidence score (0-100).
type Fragment struct {
	Text       string
	Confidence float64
}

// Config holds configuration for the Textract client.
type Config struct {
	Region string
}

// TextractClient calls AWS Textract synchronous text detection.
type TextractClient struct {
	client *textract.Client
}

// NewTextractClient creates a Textract-backed OCR client. Credentials come
// from the default AWS chain (env, shared config, instance role).
// Parameters:
//   - cfg: OCR configuration including region.
// Returns:
//   - *TextractClient: initialized client.
//   - error: non-nil if the AWS config cannot be loaded.
func NewTextractClient(cfg *Config) (*TextractClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &TextractClient{client: textract.NewFromConfig(awsCfg)}, nil
}

// DetectText runs synchronous text detection over raw document bytes and
// returns the LINE-level fragments in the order the engine emitted them.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - document: raw document bytes (JPEG, PNG, or PDF).
// Returns:
//   - []Fragment: ordered line fragments with confidence scores.
//   - error: ErrNoText if zero fragments were detected, other non-nil on
//     engine failure or a malformed response.
func (c *TextractClient) DetectText(ctx context.Context, document []byte) ([]Fragment, error) {
	out, err := c.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: document},
	})
	if err != nil {
		return nil, fmt.Errorf("text detection failed: %w", err)
	}

	var fragments []Fragment
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine {
			continue
		}
		if block.Text == nil || block.Confidence == nil {
			return nil, fmt.Errorf("malformed detection response: LINE block missing text or confidence")
		}
		fragments = append(fragments, Fragment{
			Text:       *block.Text,
			Confidence: float64(*block.Confidence),
		})
	}

	if len(fragments) == 0 {
		return nil, ErrNoText
	}
	return fragments, nil
}
