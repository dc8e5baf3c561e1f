package resolver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// Generator is the boundary to the generative-model collaborator. Available
// reports whether the collaborator's global call budget still has room; the
// budget is shared across all users of the process.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available() bool
}

const defaultModelMinConfidence = 0.6

// modelReply is the structured fragment the model is asked to return.
type modelReply struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// languageModelFallback asks the model for a single category label plus a
// confidence scalar, constrained to the fixed taxonomy.
type languageModelFallback struct {
	client        Generator
	taxonomy      *Taxonomy
	minConfidence float64
}

func (f *languageModelFallback) resolve(ctx context.Context, name string) *Resolution {
	if !f.client.Available() {
		log.Warn().Msg("Language model call budget exhausted, skipping fallback")
		return nil
	}

	raw, err := f.client.Generate(ctx, f.prompt(name))
	if err != nil {
		log.Error().Err(err).Str("merchant", name).Msg("Language model request failed")
		return nil
	}

	reply, ok := parseModelReply(raw)
	if !ok {
		log.Warn().Str("merchant", name).Msg("Language model responded with an unparseable reply")
		return nil
	}
	if reply.Confidence < f.minConfidence || reply.Confidence > 1 {
		log.Debug().Str("merchant", name).Float64("confidence", reply.Confidence).Msg("Discarding low-confidence model reply")
		return nil
	}

	res := &Resolution{
		CategoryName: strings.TrimSpace(reply.Category),
		Confidence:   reply.Confidence,
		Source:       SourceLanguageModel,
	}
	if res.CategoryName == "" {
		return nil
	}
	// Prefer the canonical label and its user-defined category link when the
	// model echoed one of ours.
	if cat, found := f.taxonomy.Find(res.CategoryName); found {
		res.CategoryName = cat.Name
		res.CategoryID = cat.ID
	}
	return res
}

func (f *languageModelFallback) prompt(name string) string {
	var prompt strings.Builder
	prompt.WriteString("I want to categorize spending by merchant. Given the merchant name: ")
	prompt.WriteString(name)
	prompt.WriteString("\n\nChoose the single best matching spending category from the following list: ")
	prompt.WriteString(strings.Join(f.taxonomy.Names(), ", "))
	prompt.WriteString("\nRespond only in JSON with the keys \"category\" (one label from the list) and \"confidence\" (a number between 0 and 1 for how sure you are). Do not respond in anything other than JSON.")
	return prompt.String()
}

// parseModelReply extracts the first well-formed JSON object from the raw
// model output. Some models wrap replies in ```json fences, so those are
// stripped first.
func parseModelReply(raw string) (modelReply, bool) {
	if strings.Contains(raw, "```") {
		raw = strings.TrimSpace(raw)
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}

	start := strings.Index(raw, "{")
	if start < 0 {
		return modelReply{}, false
	}
	for end := start + 1; end < len(raw); end++ {
		if raw[end] != '}' {
			continue
		}
		var reply modelReply
		if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err == nil {
			return reply, true
		}
	}
	return modelReply{}, false
}
