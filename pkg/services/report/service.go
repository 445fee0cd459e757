package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/site-report/pkg/adapters"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/models/store"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/locks"
	"github.com/de-tools/site-report/pkg/services/titles"
	reportstore "github.com/de-tools/site-report/pkg/store/duckdb/report"
	"github.com/rs/zerolog"
)

// Service owns the report -> complaint cascade. Operations on a report that
// does not exist are logged and return a nil result without error.
// Changes to the same report are applied one at a time.
type Service interface {
	GetAll(ctx context.Context) ([]*domain.Report, error)
	Get(ctx context.Context, id string) (*domain.Report, error)
	Create(ctx context.Context, name string) (*domain.Report, error)
	Update(ctx context.Context, r *domain.Report) error
	Rename(ctx context.Context, id, name string) (*domain.Report, error)
	Delete(ctx context.Context, id string) (bool, error)

	AddComplaint(ctx context.Context, reportID string, t domain.ComplaintType) (*domain.Complaint, error)
	RemoveComplaint(ctx context.Context, reportID, complaintID string) (bool, error)
	GenerateTitles(ctx context.Context, reportID string) (*domain.Report, error)
}

type DefaultService struct {
	reports    reportstore.Store
	complaints complaint.Service
	titles     *titles.Generator
	locks      locks.Keyed
}

func NewService(reports reportstore.Store, complaints complaint.Service, generator *titles.Generator) *DefaultService {
	return &DefaultService{
		reports:    reports,
		complaints: complaints,
		titles:     generator,
	}
}

func (s *DefaultService) GetAll(ctx context.Context) ([]*domain.Report, error) {
	recs, err := s.reports.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*domain.Report, 0, len(recs))
	for i := range recs {
		r, err := adapters.MapStoreReportToDomain(&recs[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (s *DefaultService) Get(ctx context.Context, id string) (*domain.Report, error) {
	rec, err := s.reports.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("report not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreReportToDomain(rec)
}

func (s *DefaultService) Create(ctx context.Context, name string) (*domain.Report, error) {
	r := domain.NewReport(name)
	if err := s.reports.Put(ctx, adapters.MapDomainReportToStore(r)); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("report", r.ID).Str("name", r.Name).Msg("report created")
	return r, nil
}

// Update saves the whole graph of r: items, complaints and the report record.
func (s *DefaultService) Update(ctx context.Context, r *domain.Report) error {
	defer s.locks.Lock(r.ID)()

	for _, c := range r.Complaints {
		if err := s.complaints.Put(ctx, c); err != nil {
			return err
		}
	}
	return s.saveMetadata(ctx, r)
}

func (s *DefaultService) Rename(ctx context.Context, id, name string) (*domain.Report, error) {
	defer s.locks.Lock(id)()

	r, err := s.Get(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	r.Rename(name)
	if err := s.saveMetadata(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes every owned complaint, with their items, and then the
// report record.
func (s *DefaultService) Delete(ctx context.Context, id string) (bool, error) {
	defer s.locks.Lock(id)()

	r, err := s.Get(ctx, id)
	if err != nil || r == nil {
		return false, err
	}

	for _, c := range r.Complaints {
		if err := s.complaints.Delete(ctx, c.ID); err != nil {
			return false, fmt.Errorf("delete complaints of report %s: %w", id, err)
		}
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return false, err
	}

	zerolog.Ctx(ctx).Info().Str("report", id).Int("complaints", len(r.Complaints)).Msg("report deleted")
	return true, nil
}

func (s *DefaultService) AddComplaint(ctx context.Context, reportID string, t domain.ComplaintType) (*domain.Complaint, error) {
	c, err := domain.NewComplaint(t)
	if err != nil {
		return nil, err
	}

	defer s.locks.Lock(reportID)()

	r, err := s.Get(ctx, reportID)
	if err != nil || r == nil {
		return nil, err
	}

	r.AddComplaint(c)
	if err := s.complaints.Put(ctx, c); err != nil {
		return nil, err
	}
	if err := s.saveMetadata(ctx, r); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveComplaint deletes the complaint with its items and drops it from
// the report. It reports whether the complaint belonged to the report.
func (s *DefaultService) RemoveComplaint(ctx context.Context, reportID, complaintID string) (bool, error) {
	defer s.locks.Lock(reportID)()

	r, err := s.Get(ctx, reportID)
	if err != nil || r == nil {
		return false, err
	}

	if r.ComplaintByID(complaintID) == nil {
		zerolog.Ctx(ctx).Error().
			Str("report", reportID).
			Str("complaint", complaintID).
			Msg("complaint not found")
		return false, nil
	}

	if err := s.complaints.Delete(ctx, complaintID); err != nil {
		return false, err
	}
	r.RemoveComplaint(complaintID)
	if err := s.saveMetadata(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

// GenerateTitles titles every complaint of the report and stores them.
func (s *DefaultService) GenerateTitles(ctx context.Context, reportID string) (*domain.Report, error) {
	defer s.locks.Lock(reportID)()

	r, err := s.Get(ctx, reportID)
	if err != nil || r == nil {
		return nil, err
	}

	s.titles.Apply(ctx, r)
	for _, c := range r.Complaints {
		if err := s.complaints.SetTitle(ctx, c.ID, c.Title); err != nil {
			return nil, err
		}
	}

	r.Touch()
	if err := s.saveMetadata(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *DefaultService) saveMetadata(ctx context.Context, r *domain.Report) error {
	return s.reports.Put(ctx, adapters.MapDomainReportToStore(r))
}
