package delivery

import (
	"context"
	"fmt"

	"github.com/de-tools/site-report/pkg/clients/mail"
	"github.com/de-tools/site-report/pkg/export"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/rs/zerolog"
)

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Service renders reports and mails them.
type Service struct {
	reports  report.Service
	renderer export.Renderer
	mailer   Mailer
	hidden   func(itemID string) bool
}

type Option func(*Service)

// WithHiddenItems leaves items for which hidden returns true out of the
// exported document, e.g. items whose delete is still pending.
func WithHiddenItems(hidden func(itemID string) bool) Option {
	return func(s *Service) {
		s.hidden = hidden
	}
}

func NewService(reports report.Service, renderer export.Renderer, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		reports:  reports,
		renderer: renderer,
		mailer:   mailer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns nil, nil when the report does not exist.
func (s *Service) Export(ctx context.Context, reportID string) (*export.Document, error) {
	r, err := s.load(ctx, reportID)
	if err != nil || r == nil {
		return nil, err
	}
	return s.renderer.Render(ctx, r)
}

// Send mails the rendered report to the recipient. It reports false when the
// report does not exist.
func (s *Service) Send(ctx context.Context, reportID, to string) (bool, error) {
	if s.mailer == nil {
		return false, fmt.Errorf("mail delivery is not configured")
	}

	r, err := s.load(ctx, reportID)
	if err != nil || r == nil {
		return false, err
	}
	doc, err := s.renderer.Render(ctx, r)
	if err != nil {
		return false, err
	}

	msg := mail.Message{
		To:      to,
		Subject: "Report: " + r.Name,
		Body:    "Report: " + r.Name,
		Attachment: mail.Attachment{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Data:        doc.Data,
		},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send report %s: %w", reportID, err)
	}

	zerolog.Ctx(ctx).Info().Str("report", reportID).Str("attachment", doc.Filename).Msg("report sent")
	return true, nil
}

func (s *Service) load(ctx context.Context, reportID string) (*domain.Report, error) {
	r, err := s.reports.Get(ctx, reportID)
	if err != nil || r == nil {
		return nil, err
	}
	if s.hidden == nil {
		return r, nil
	}

	for _, c := range r.Complaints {
		visible := make([]domain.Item, 0, len(c.Items))
		for _, it := range c.Items {
			if !s.hidden(it.ID) {
				visible = append(visible, it)
			}
		}
		c.Items = visible
	}
	return r, nil
}
