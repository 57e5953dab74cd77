package application

import (
	"context"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/config"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/infra/adapters/ai"
)

// NewAIAdapter builds the provider chain: metis, openai, gemini in that
// failover order, each instrumented, behind one concurrency limit. Without
// any key it returns the offline adapter.
func NewAIAdapter(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if !cfg.Enabled() {
		logger.Warn().Msg("no ai provider configured, running heuristics only")
		return ai.NewNoopAIAdapter(), nil
	}

	byProvider := map[string]adapter.AIServiceAdapter{}
	var order []string
	if cfg.MetisKey != "" {
		a, err := ai.NewOpenAIAdapter("metis", cfg.MetisKey, cfg.DefaultModel, cfg.MetisBaseURL)
		if err != nil {
			return nil, err
		}
		byProvider["metis"] = ai.NewInstrumentedAI("metis", a)
		order = append(order, "metis")
	}
	if cfg.OpenAIKey != "" {
		a, err := ai.NewOpenAIAdapter("openai", cfg.OpenAIKey, cfg.DefaultModel, "")
		if err != nil {
			return nil, err
		}
		byProvider["openai"] = ai.NewInstrumentedAI("openai", a)
		order = append(order, "openai")
	}
	if cfg.GeminiKey != "" {
		a, err := ai.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.DefaultModel, 0)
		if err != nil {
			return nil, err
		}
		byProvider["gemini"] = ai.NewInstrumentedAI("gemini", a)
		order = append(order, "gemini")
	}

	multi := ai.NewMultiAIAdapter(order[0], order, byProvider, nil, logger)
	logger.Info().Strs("providers", order).Str("default_model", cfg.DefaultModel).Msg("ai adapters ready")
	return ai.NewLimitedAI(multi, cfg.ConcurrentLimit), nil
}
