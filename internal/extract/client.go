// Package extract turns rendered form pages into InspectionData by way of
// a vision-capable extraction service.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/raster"
	"github.com/sells-group/inspection-review/internal/resilience"
	"github.com/sells-group/inspection-review/internal/schema"
	"github.com/sells-group/inspection-review/pkg/anthropic"
)

// Extractor extracts InspectionData from page images.
type Extractor interface {
	Extract(ctx context.Context, pages []raster.Page, hints model.FieldHints) (*model.InspectionData, error)
}

// Config configures a Client.
type Config struct {
	Model     string
	MaxTokens int64
	// RequestsPerMinute limits calls to the service. Zero disables limiting.
	RequestsPerMinute int
	// CacheTTL is the system prompt cache lifetime, "5m" or "1h".
	CacheTTL string
	Breaker  resilience.CircuitBreakerConfig
}

// Client implements Extractor on top of the Anthropic messages API. It
// makes exactly one service call per Extract and never retries.
type Client struct {
	ai      anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

var _ Extractor = (*Client)(nil)

// NewClient creates an extraction Client.
func NewClient(ai anthropic.Client, cfg Config) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.CacheTTL == "" {
		cfg.CacheTTL = "1h"
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "extraction"
	}
	if cfg.Breaker.ShouldTrip == nil {
		cfg.Breaker.ShouldTrip = tripsBreaker
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		ai:      ai,
		cfg:     cfg,
		limiter: limiter,
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
	}
}

// tripsBreaker counts only failures that say the service is unhealthy. A
// 400 for one bad request says nothing about the next.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

// Extract sends pages (in order) and hints to the service and returns the
// leniently validated result with overallStatus derived from its items.
func (c *Client) Extract(ctx context.Context, pages []raster.Page, hints model.FieldHints) (*model.InspectionData, error) {
	if len(pages) == 0 {
		return nil, &raster.DocumentParseError{Err: ErrNoPages}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Err: eris.Wrap(err, "rate limit wait")}
	}

	images := make([]anthropic.Image, len(pages))
	for i, p := range pages {
		mt := p.MediaType
		if mt == "" {
			mt = "image/jpeg"
		}
		images[i] = anthropic.Image{MediaType: mt, Data: p.Data}
	}

	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(SystemPrompt, c.cfg.CacheTTL),
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: userPrompt(len(pages), hints),
			Images:  images,
		}},
	}

	started := time.Now()
	resp, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.ai.CreateMessage(ctx, req)
	})
	if err != nil {
		zap.L().Warn("extract: service call failed",
			zap.Int("pages", len(pages)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: anthropic.StatusCode(err), Err: err}
	}

	resp.Usage.LogCost(c.cfg.Model, "extraction")

	if resp.StopReason == "max_tokens" {
		return nil, &FormatError{Raw: resp.Text(), Err: eris.Errorf("response truncated at %d tokens", c.cfg.MaxTokens)}
	}

	d, err := Parse(resp.Text())
	if err != nil {
		return nil, err
	}

	zap.L().Info("extract: form extracted",
		zap.Int("pages", len(pages)),
		zap.Int("checklist_items", len(d.ChecklistItems)),
		zap.Int("deadletter", len(d.Deadletter)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return d, nil
}

// Parse decodes the service's reply. Markdown fences around the object are
// ignored; anything that does not decode to an InspectionData object is a
// *FormatError, never an empty record.
func Parse(text string) (*model.InspectionData, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, &FormatError{Raw: text, Err: eris.New("empty response")}
	}
	d, err := schema.ParseLenient([]byte(cleaned))
	if err != nil {
		return nil, &FormatError{Raw: text, Err: err}
	}
	return d, nil
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	for _, fence := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
