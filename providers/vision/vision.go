// Package vision reads structured property features out of listing photos.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/openai"
)

const analyzePrompt = `You are a real-estate photo analyst. Inspect the photos and return JSON:
{"property_type":"villa|condo|townhouse|apartment|land",
"beds":0,"baths":0,"amenities":[],"has_pool":false,"has_garden":false,
"has_sea_view":false,"style":"","condition":"new|renovated|good|needs work",
"highlights":[],"suggested_title":""}
Count only what is visible. Keep highlights to short phrases.`

const extractAddressPrompt = `The image is a screenshot or photo that may show an address, a map pin,
a plus code, or coordinates. Return JSON:
{"has_coords":false,"lat":0,"lng":0,"location_code":"","address_text":""}
Set has_coords only when explicit numeric coordinates are visible.
location_code is a plus code like "7P52XQ2C+XX" when present.`

type Analyzer struct {
	client *openai.Client
	logger *slog.Logger
}

var _ external.VisionAnalyzer = (*Analyzer)(nil)

func New(client *openai.Client, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger}
}

// Analyze degrades to a conservative default instead of failing: a broken
// vision backend must never block a listing from being created.
func (a *Analyzer) Analyze(ctx context.Context, imageURLs []string, locationContext string) (external.VisionAnalysis, error) {
	prompt := analyzePrompt
	if strings.TrimSpace(locationContext) != "" {
		prompt += "\nLocation context: " + locationContext
	}
	res, err := a.client.Chat(ctx, openai.Request{
		Messages:  []openai.Message{openai.VisionMessage(prompt, imageURLs)},
		ForceJSON: true,
	})
	if err != nil {
		a.logger.Warn("vision_analyze_degraded", "image_count", len(imageURLs), "error", err.Error())
		return external.ConservativeAnalysis(), nil
	}

	var out external.VisionAnalysis
	if err := openai.DecodeJSON(res.Text, &out); err != nil {
		a.logger.Warn("vision_analyze_decode_degraded", "error", err.Error())
		return external.ConservativeAnalysis(), nil
	}
	if out.PropertyType == "" {
		out.PropertyType = "property"
	}
	return out, nil
}

// ExtractAddress reads a location hint out of a single screenshot. Unlike
// Analyze this does fail, because the caller has a retry conversation.
func (a *Analyzer) ExtractAddress(ctx context.Context, imageURL string) (external.AddressGuess, error) {
	res, err := a.client.Chat(ctx, openai.Request{
		Messages:  []openai.Message{openai.VisionMessage(extractAddressPrompt, []string{imageURL})},
		ForceJSON: true,
	})
	if err != nil {
		return external.AddressGuess{}, fmt.Errorf("vision address extraction: %w", err)
	}
	var out external.AddressGuess
	if err := openai.DecodeJSON(res.Text, &out); err != nil {
		return external.AddressGuess{}, err
	}
	return out, nil
}
