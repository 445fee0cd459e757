package transcription

import (
	"context"
	"sync"

	"github.com/de-tools/site-report/pkg/metrics"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxInFlight bounds concurrent calls to the speech-to-text endpoint.
const maxInFlight = 4

type Transcriber interface {
	Transcribe(ctx context.Context, audio *domain.Blob) (string, error)
}

// Service fills in missing transcripts of recordings. A failed recording is
// logged and skipped; it never aborts the rest of the batch.
type Service struct {
	complaints complaint.Service
	reports    report.Service
	stt        Transcriber
	metrics    *metrics.Metrics
}

func NewService(complaints complaint.Service, reports report.Service, stt Transcriber, m *metrics.Metrics) *Service {
	return &Service{
		complaints: complaints,
		reports:    reports,
		stt:        stt,
		metrics:    m,
	}
}

// TranscribeComplaint returns the number of recordings that got a transcript.
func (s *Service) TranscribeComplaint(ctx context.Context, complaintID string) (int, error) {
	c, err := s.complaints.Get(ctx, complaintID)
	if err != nil || c == nil {
		return 0, err
	}
	return s.transcribe(ctx, c)
}

func (s *Service) TranscribeReport(ctx context.Context, reportID string) (int, error) {
	r, err := s.reports.Get(ctx, reportID)
	if err != nil || r == nil {
		return 0, err
	}

	total := 0
	for _, c := range r.Complaints {
		n, err := s.transcribe(ctx, c)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Service) transcribe(ctx context.Context, c *domain.Complaint) (int, error) {
	logger := zerolog.Ctx(ctx).With().Str("complaint", c.ID).Logger()

	var (
		mu          sync.Mutex
		transcripts = make(map[string]string)
	)

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for _, it := range c.Items {
		if !it.NeedsTranscript() {
			continue
		}
		g.Go(func() error {
			text, err := s.stt.Transcribe(ctx, it.Audio)
			if err != nil || text == "" {
				logger.Error().Err(err).Str("item", it.ID).Msg("failed to transcribe recording")
				s.metrics.TranscriptionResult(false)
				return nil
			}
			s.metrics.TranscriptionResult(true)

			mu.Lock()
			transcripts[it.ID] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	saved := 0
	for _, it := range c.Items {
		text, ok := transcripts[it.ID]
		if !ok {
			continue
		}
		updated, err := s.complaints.UpdateItem(ctx, c.ID, it.ID, domain.ItemInput{Text: text})
		if err != nil {
			return saved, err
		}
		if updated != nil {
			saved++
		}
	}
	return saved, nil
}
