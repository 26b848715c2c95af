// Package enhance attaches LLM-written narratives and confidence
// adjustments to generated alerts. Everything here is best-effort: any
// failure, from missing credentials to malformed replies, surfaces as an
// error the pipeline translates into "alerts unchanged". The adapter never
// blocks alert delivery.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openshelf/stock-sentinel/pkg/model"
)

// Defaults applied by NewService for zero Config fields.
const (
	DefaultTopN        = 5
	DefaultChunkSize   = 5
	DefaultConcurrency = 2
	DefaultChunkDelay  = 200 * time.Millisecond
)

// Adjustment is the per-alert enhancement payload: a short narrative and a
// multiplier applied to the alert's confidence prior.
type Adjustment struct {
	Narrative        string
	ConfidenceFactor float64
}

// Enhancer attaches narrative analysis to a capped subset of top alerts,
// keyed by alert identity. Implementations must respect ctx; callers treat
// any error as "leave every alert unchanged".
type Enhancer interface {
	Enhance(ctx context.Context, alerts []model.Alert, tenant string) (map[string]Adjustment, error)
}

// Client is one LLM backend: it sends a single prompt and returns the raw
// completion text plus reported token usage.
type Client interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, Usage, error)
}

// Usage is the token count for one call, as reported by the provider or
// estimated locally when the provider stays silent.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Config tunes the batching behavior of the Service.
type Config struct {
	TopN        int           // alerts considered for enhancement
	ChunkSize   int           // max alerts per request
	Concurrency int           // concurrent chunk requests
	ChunkDelay  time.Duration // pause between chunk launches
}

// Service is the production Enhancer: it selects the top alerts from the
// ranked list, batches them into provider requests, and validates every
// reply. Chunks run with bounded concurrency and an inter-chunk delay so a
// large batch does not trip provider rate limits.
type Service struct {
	client Client
	meter  *Meter
	cfg    Config
	logger *slog.Logger
}

// NewService wires an enhancement service. meter may be nil to skip tenant
// metering; zero Config fields fall back to the package defaults.
func NewService(client Client, meter *Meter, cfg Config, logger *slog.Logger) *Service {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = DefaultChunkDelay
	}
	return &Service{
		client: client,
		meter:  meter,
		cfg:    cfg,
		logger: logger,
	}
}

// Enhance processes the top of the ranked alert list. Chunks that fail are
// logged and skipped, leaving their alerts unchanged; the call errors only
// when the tenant is over budget or every chunk failed.
func (s *Service) Enhance(ctx context.Context, alerts []model.Alert, tenant string) (map[string]Adjustment, error) {
	if len(alerts) == 0 {
		return map[string]Adjustment{}, nil
	}

	if s.meter != nil {
		if err := s.meter.Allow(ctx, tenant); err != nil {
			return nil, err
		}
	}

	top := alerts
	if len(top) > s.cfg.TopN {
		top = top[:s.cfg.TopN]
	}
	chunks := chunkAlerts(top, s.cfg.ChunkSize)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		out      = make(map[string]Adjustment)
		failures int
	)
	sem := make(chan struct{}, s.cfg.Concurrency)

	for i, chunk := range chunks {
		if i > 0 && s.cfg.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.ChunkDelay):
			}
		}
		if ctx.Err() != nil {
			mu.Lock()
			failures += len(chunks) - i
			mu.Unlock()
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(batch []model.Alert) {
			defer wg.Done()
			defer func() { <-sem }()

			adj, usage, err := s.enhanceChunk(ctx, batch)
			if s.meter != nil && (usage.InputTokens > 0 || usage.OutputTokens > 0) {
				// Deliberately not the request ctx: usage must land even
				// when the enhancement deadline has just expired.
				s.meter.Record(context.Background(), tenant, s.client.Name(), s.client.Model(), usage)
			}
			if err != nil {
				s.logger.Warn("enhancement chunk failed", "alerts", len(batch), "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			mu.Lock()
			for k, v := range adj {
				out[k] = v
			}
			mu.Unlock()
		}(chunk)
	}
	wg.Wait()

	if len(out) == 0 && failures > 0 {
		return nil, fmt.Errorf("all %d enhancement chunks failed", failures)
	}
	return out, nil
}

func (s *Service) enhanceChunk(ctx context.Context, batch []model.Alert) (map[string]Adjustment, Usage, error) {
	prompt := buildPrompt(batch)
	s.logger.Debug("enhancement chunk prepared",
		"alerts", len(batch),
		"prompt_tokens", CountTokens(prompt, s.client.Model()),
	)

	text, usage, err := s.client.Complete(ctx, prompt)
	if usage.InputTokens == 0 {
		usage.InputTokens = CountTokens(systemPrompt+prompt, s.client.Model())
	}
	if usage.OutputTokens == 0 && text != "" {
		usage.OutputTokens = CountTokens(text, s.client.Model())
	}
	if err != nil {
		return nil, usage, err
	}

	keys := make(map[string]struct{}, len(batch))
	for _, a := range batch {
		keys[a.Key] = struct{}{}
	}

	adj, err := parseResponse(text, keys)
	if err != nil {
		return nil, usage, err
	}
	return adj, usage, nil
}

func chunkAlerts(alerts []model.Alert, size int) [][]model.Alert {
	if len(alerts) <= size {
		return [][]model.Alert{alerts}
	}
	var chunks [][]model.Alert
	for start := 0; start < len(alerts); start += size {
		chunks = append(chunks, alerts[start:min(start+size, len(alerts))])
	}
	return chunks
}

// NewClient builds the configured provider backend. An empty or "none"
// provider returns nil, which disables enhancement entirely.
func NewClient(provider, baseURL, apiKey, modelName string) (Client, error) {
	switch provider {
	case "", "none":
		return nil, nil
	case "openai":
		return NewOpenAI(baseURL, apiKey, modelName), nil
	case "anthropic":
		return NewAnthropic(baseURL, apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unknown enhancement provider %q", provider)
	}
}
