package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"plantregistry/registry"
)

const (
	// DefaultAcceptThreshold is the minimum confidence for an oracle
	// label to be accepted without manual review.
	DefaultAcceptThreshold = 0.88
	// DefaultContextLimit caps the context excerpt embedded in the
	// prompt, in runes. Longer context is truncated, never an error.
	DefaultContextLimit = 1500
)

// Config holds the gateway tunables.
type Config struct {
	AcceptThreshold float64
	ContextLimit    int
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		AcceptThreshold: DefaultAcceptThreshold,
		ContextLimit:    DefaultContextLimit,
	}
}

// Request asks for one plant's subtype. Context is the retrieved
// free-text block; it may be empty.
type Request struct {
	PlantID    string
	Name       string
	Technology registry.Technology
	Context    string
}

// Result is the gated classification outcome. Label is empty ("none")
// whenever confidence fell below the acceptance threshold, the oracle
// answered off-list, or the call failed; the raw confidence is kept for
// audit. Invariant: Confidence < threshold implies Label == "".
type Result struct {
	PlantID    string
	Label      string
	Confidence float64
}

// Accepted reports whether the result carries a usable label.
func (r Result) Accepted() bool {
	return r.Label != ""
}

// Gateway builds prompts, invokes the oracle and gates the answers.
type Gateway struct {
	client CompletionClient
	config Config
	logger *slog.Logger
}

// NewGateway creates a gateway over a completion client. Zero config
// fields fall back to the defaults.
func NewGateway(client CompletionClient, config Config) *Gateway {
	if config.AcceptThreshold <= 0 {
		config.AcceptThreshold = DefaultAcceptThreshold
	}
	if config.ContextLimit <= 0 {
		config.ContextLimit = DefaultContextLimit
	}
	return &Gateway{
		client: client,
		config: config,
		logger: slog.Default().With("component", "classify_gateway"),
	}
}

const systemPrompt = `You classify power plants into subtypes. Answer with one JSON object only.`

// Classify performs exactly one oracle call for the request and returns
// the gated result. It never returns an error: transport failures,
// unparsable output, off-list labels and low confidence all degrade to
// an empty label, which the orchestrator routes to manual review.
func (g *Gateway) Classify(ctx context.Context, req Request) Result {
	result := Result{PlantID: req.PlantID}

	labels := registry.LabelSet(req.Technology)
	if len(labels) == 0 {
		g.logger.Warn("no label set for technology, skipping classification",
			"plant_id", req.PlantID, "technology", req.Technology)
		return result
	}

	raw, err := g.client.Complete(ctx, systemPrompt, g.buildPrompt(req, labels))
	if err != nil {
		g.logger.Warn("oracle call failed",
			"plant_id", req.PlantID, "error", err)
		return result
	}

	parsed, err := parseOracleResponse(raw)
	if err != nil {
		g.logger.Warn("oracle response rejected",
			"plant_id", req.PlantID, "error", err)
		return result
	}

	result.Confidence = parsed.Confidence

	canonical, ok := registry.CanonicalLabel(req.Technology, parsed.Label)
	if !ok {
		// "Unknown" is the oracle saying it cannot decide; anything
		// else off-list is logged for audit.
		if !strings.EqualFold(strings.TrimSpace(parsed.Label), registry.LabelUnknown) {
			g.logger.Warn("oracle label outside fixed set",
				"plant_id", req.PlantID, "label", parsed.Label)
		}
		return result
	}

	if parsed.Confidence < g.config.AcceptThreshold {
		g.logger.Info("classification below acceptance threshold",
			"plant_id", req.PlantID,
			"label", canonical,
			"confidence", parsed.Confidence,
			"threshold", g.config.AcceptThreshold)
		return result
	}

	result.Label = canonical
	return result
}

// buildPrompt assembles the compact classification prompt: entity name,
// bounded context excerpt, and the closed label list plus the Unknown
// sentinel.
func (g *Gateway) buildPrompt(req Request, labels []string) string {
	contextText := truncateRunes(strings.TrimSpace(req.Context), g.config.ContextLimit)
	if contextText == "" {
		contextText = "(no context available)"
	}

	return fmt.Sprintf(`Classify the subtype of this power plant.

Plant: %s
Technology: %s
Context: %s

Choose exactly one label: %s, %s

JSON: {"label": "...", "confidence": 0.0}`,
		req.Name,
		req.Technology,
		contextText,
		strings.Join(labels, ", "),
		registry.LabelUnknown,
	)
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
