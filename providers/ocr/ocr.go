// Package ocr extracts structured fields from identity and address
// documents via the vision-capable completion endpoint.
package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/openai"
)

const idPrompt = `The image is a government identity card. Return JSON:
{"first_name":"","last_name":"","national_id":""}
Transcribe exactly as printed; leave fields empty when unreadable.`

const addressPrompt = `The image is a house-registration or utility document showing a
residential address. Return JSON:
{"address":"","postal_code":""}
The postal code is 5 digits. Leave fields empty when unreadable.`

type Extractor struct {
	client *openai.Client
	logger *slog.Logger
}

var _ external.DocumentExtractor = (*Extractor)(nil)

func New(client *openai.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, imageURL string, kind external.DocumentKind) (external.DocumentFields, error) {
	var prompt string
	switch kind {
	case external.DocumentID:
		prompt = idPrompt
	case external.DocumentAddress:
		prompt = addressPrompt
	default:
		return external.DocumentFields{}, fmt.Errorf("unknown document kind: %s", kind)
	}

	res, err := e.client.Chat(ctx, openai.Request{
		Messages:  []openai.Message{openai.VisionMessage(prompt, []string{imageURL})},
		ForceJSON: true,
	})
	if err != nil {
		return external.DocumentFields{}, fmt.Errorf("ocr %s document: %w", kind, err)
	}

	var out external.DocumentFields
	if err := openai.DecodeJSON(res.Text, &out); err != nil {
		return external.DocumentFields{}, err
	}
	e.logger.Debug("ocr_extracted", "kind", string(kind))
	return out, nil
}
