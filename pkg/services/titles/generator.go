package titles

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/de-tools/site-report/pkg/metrics"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/rs/zerolog"
)

// MinTextLength is the shortest text, in runes, worth sending for a title.
const MinTextLength = 10

type Client interface {
	Title(ctx context.Context, text string) (string, error)
}

type Generator struct {
	client  Client
	metrics *metrics.Metrics
}

// NewGenerator creates a generator. Without a client every title is the
// fallback one. m may be nil.
func NewGenerator(client Client, m *metrics.Metrics) *Generator {
	return &Generator{client: client, metrics: m}
}

// Fallback is the deterministic title used when no generated one is
// available, e.g. "Finding 1".
func Fallback(t domain.ComplaintType, n int) string {
	return fmt.Sprintf("%s %d", t.Label(), n)
}

// Title suggests a title for the n-th complaint of a report (1-based).
// Remote failures are logged and answered with the fallback.
func (g *Generator) Title(ctx context.Context, c *domain.Complaint, n int) string {
	logger := zerolog.Ctx(ctx).With().Str("complaint", c.ID).Logger()
	fallback := Fallback(c.Type, n)

	text := strings.TrimSpace(c.Text())
	if g.client == nil || utf8.RuneCountInString(text) < MinTextLength {
		g.metrics.TitleFallback()
		return fallback
	}

	title, err := g.client.Title(ctx, text)
	title = strings.TrimSpace(title)
	if err != nil || title == "" {
		logger.Error().Err(err).Msg("failed to generate title")
		g.metrics.TitleFallback()
		return fallback
	}
	return title
}

// Apply sets the title of every complaint of r in report order.
func (g *Generator) Apply(ctx context.Context, r *domain.Report) {
	for i, c := range r.Complaints {
		c.Title = g.Title(ctx, c, i+1)
	}
}
