// Package contentgen synthesizes the listing title, description and HTML
// body from the collected facts and the vision analysis.
package contentgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/openai"
)

const generatePrompt = `You write real-estate listing copy for a Phuket agency. Given the facts
below, return JSON:
{"title":"","short_description":"","html":"","suggested_price":0}
Rules: title under 70 characters, no ALL CAPS; short_description is 2-3
sentences; html is the full body using <h2>, <p> and a <ul> of amenities
with data-icon attributes from the provided icon map; suggested_price in
THB, 0 if the asking price looks reasonable. Never invent amenities that
are not listed.

Facts:
%s`

// Lucide icon names per amenity, rendered into the HTML body.
var amenityIcons = map[string]string{
	"swimming pool":    "waves",
	"pool":             "waves",
	"garden":           "flower2",
	"parking":          "car",
	"garage":           "car",
	"balcony":          "door-open",
	"terrace":          "sun",
	"kitchen":          "cooking-pot",
	"air conditioning": "air-vent",
	"gym":              "dumbbell",
	"security":         "shield",
	"cctv":             "cctv",
	"elevator":         "arrow-up-down",
	"wifi":             "wifi",
	"sea view":         "waves",
	"mountain view":    "mountain",
	"bbq":              "flame",
	"laundry":          "shirt",
	"furnished":        "armchair",
	"jacuzzi":          "waves",
	"rooftop":          "sun",
}

func iconFor(amenity string) string {
	key := strings.ToLower(strings.TrimSpace(amenity))
	for k, icon := range amenityIcons {
		if strings.Contains(key, k) || strings.Contains(k, key) {
			return icon
		}
	}
	return "check"
}

type Generator struct {
	client *openai.Client
	logger *slog.Logger
}

var _ external.ContentGenerator = (*Generator)(nil)

func New(client *openai.Client, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, input external.ContentInput) (external.ListingContent, error) {
	facts := buildFacts(input)
	res, err := g.client.Chat(ctx, openai.Request{
		Messages: []openai.Message{
			openai.TextMessage("user", fmt.Sprintf(generatePrompt, facts)),
		},
		ForceJSON: true,
	})
	if err != nil {
		return external.ListingContent{}, fmt.Errorf("generate listing content: %w", err)
	}

	var out external.ListingContent
	if err := openai.DecodeJSON(res.Text, &out); err != nil {
		return external.ListingContent{}, err
	}
	if strings.TrimSpace(out.Title) == "" {
		return external.ListingContent{}, fmt.Errorf("generator returned empty title")
	}
	g.logger.Debug("content_generated", "title", out.Title, "tokens", res.Usage.TotalTokens)
	return out, nil
}

func buildFacts(input external.ContentInput) string {
	icons := make(map[string]string, len(input.Analysis.Amenities))
	for _, a := range input.Analysis.Amenities {
		icons[a] = iconFor(a)
	}
	facts := map[string]any{
		"listing_type":  input.ListingType,
		"property_type": input.PropertyType,
		"ownership":     input.Ownership,
		"bedrooms":      input.Bedrooms,
		"bathrooms":     input.Bathrooms,
		"price_thb":     input.Price,
		"address":       input.Address,
		"district":      input.District,
		"analysis":      input.Analysis,
		"amenity_icons": icons,
	}
	b, _ := json.MarshalIndent(facts, "", "  ")
	return string(b)
}
