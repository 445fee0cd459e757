package app

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/de-tools/site-report/pkg/clients/mail"
	"github.com/de-tools/site-report/pkg/clients/textapi"
	"github.com/de-tools/site-report/pkg/export"
	"github.com/de-tools/site-report/pkg/metrics"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/services/complaint"
	"github.com/de-tools/site-report/pkg/services/config"
	"github.com/de-tools/site-report/pkg/services/delivery"
	"github.com/de-tools/site-report/pkg/services/item"
	"github.com/de-tools/site-report/pkg/services/report"
	"github.com/de-tools/site-report/pkg/services/titles"
	"github.com/de-tools/site-report/pkg/services/transcription"
	"github.com/de-tools/site-report/pkg/store/blob"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	duckdbblob "github.com/de-tools/site-report/pkg/store/duckdb/blob"
	complaintstore "github.com/de-tools/site-report/pkg/store/duckdb/complaint"
	itemstore "github.com/de-tools/site-report/pkg/store/duckdb/item"
	reportstore "github.com/de-tools/site-report/pkg/store/duckdb/report"
	"github.com/de-tools/site-report/pkg/store/s3blob"
	"github.com/de-tools/site-report/pkg/undo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// App is the composition root shared by the web server and the CLI.
type App struct {
	Gateway       *duckdb.Gateway
	Registry      *prometheus.Registry
	Metrics       *metrics.Metrics
	Tracker       *undo.Tracker
	Items         item.Service
	Complaints    complaint.Service
	Reports       report.Service
	Transcription *transcription.Service
	Delivery      *delivery.Service
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	gateway := duckdb.NewGateway(duckdb.Settings{
		DbPath:  cfg.Database.Path,
		Threads: cfg.Database.Threads,
	})

	blobs, err := newBlobStore(ctx, cfg.Blob, gateway)
	if err != nil {
		return nil, err
	}
	items, err := itemstore.NewStore(gateway, blobs)
	if err != nil {
		return nil, fmt.Errorf("failed to create item store: %w", err)
	}
	complaints, err := complaintstore.NewStore(gateway, items)
	if err != nil {
		return nil, fmt.Errorf("failed to create complaint store: %w", err)
	}
	reports, err := reportstore.NewStore(gateway, complaints)
	if err != nil {
		return nil, fmt.Errorf("failed to create report store: %w", err)
	}

	var (
		titleClient titles.Client
		stt         transcription.Transcriber = unavailableTranscriber{}
		mailer      delivery.Mailer
	)
	if cfg.TextAPI.BaseURL != "" {
		c, err := textapi.New(cfg.TextAPI.BaseURL, textapi.WithTimeout(cfg.TextAPI.Timeout))
		if err != nil {
			return nil, err
		}
		titleClient, stt = c, c
	} else {
		logger.Warn().Msg("text api is not configured, titles fall back to labels and transcription is disabled")
	}
	if cfg.Mail.BaseURL != "" {
		c, err := mail.New(cfg.Mail.BaseURL, mail.WithTimeout(cfg.Mail.Timeout))
		if err != nil {
			return nil, err
		}
		mailer = c
	}

	tracker := undo.NewTracker(cfg.Undo.Window, m)
	itemService := item.NewService(items)
	complaintService := complaint.NewService(complaints, itemService, complaint.WithTransactions(gateway))
	reportService := report.NewService(reports, complaintService, titles.NewGenerator(titleClient, m))

	return &App{
		Gateway:       gateway,
		Registry:      registry,
		Metrics:       m,
		Tracker:       tracker,
		Items:         itemService,
		Complaints:    complaintService,
		Reports:       reportService,
		Transcription: transcription.NewService(complaintService, reportService, stt, m),
		Delivery: delivery.NewService(reportService, export.NewDOCXRenderer(), mailer,
			delivery.WithHiddenItems(tracker.IsPending)),
	}, nil
}

// Close commits every pending delete and closes the database.
func (a *App) Close(ctx context.Context) error {
	flushErr := a.Tracker.Flush(ctx)
	if flushErr != nil {
		zerolog.Ctx(ctx).Error().Err(flushErr).Msg("failed to flush pending deletes")
	}
	return errors.Join(flushErr, a.Gateway.Close())
}

func newBlobStore(ctx context.Context, cfg config.BlobConfig, gateway *duckdb.Gateway) (blob.Store, error) {
	switch cfg.Backend {
	case config.BlobBackendS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.S3.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return s3blob.NewFromConfig(awsCfg, s3blob.Config{Bucket: cfg.S3.Bucket, Prefix: cfg.S3.Prefix})
	default:
		return duckdbblob.NewStore(gateway)
	}
}

type unavailableTranscriber struct{}

func (unavailableTranscriber) Transcribe(context.Context, *domain.Blob) (string, error) {
	return "", errors.New("speech-to-text is not configured")
}
