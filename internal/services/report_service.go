package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
)

// ErrReportsDisabled is returned when no publisher is configured.
var ErrReportsDisabled = errors.New("report generation is disabled")

// Publisher enqueues report requests.
type Publisher interface {
	PublishReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error
}

// PublishObserver is notified of every publish attempt.
type PublishObserver interface {
	ReportPublished(err error)
}

// ReportService turns dashboard selections into queued report requests.
type ReportService struct {
	ds        *core.Dataset
	publisher Publisher
	observer  PublishObserver
}

// NewReportService creates the service. publisher and observer may be nil.
func NewReportService(ds *core.Dataset, publisher Publisher, observer PublishObserver) *ReportService {
	return &ReportService{ds: ds, publisher: publisher, observer: observer}
}

// Enabled reports whether requests can be queued.
func (s *ReportService) Enabled() bool {
	return s.publisher != nil
}

// Healthy reports broker connectivity when the publisher tracks it.
func (s *ReportService) Healthy() bool {
	if hc, ok := s.publisher.(interface{ Healthy() bool }); ok {
		return hc.Healthy()
	}
	return s.Enabled()
}

// RequestReport validates sel against the dataset and publishes a request for it.
func (s *ReportService) RequestReport(ctx context.Context, sel core.Selection) (*amqp.ReportRequestMessage, error) {
	if s.publisher == nil {
		return nil, ErrReportsDisabled
	}
	if err := s.ds.Validate(sel); err != nil {
		return nil, err
	}

	msg := amqp.NewReportRequest(sel)
	err := s.publisher.PublishReportRequest(ctx, msg)
	if s.observer != nil {
		s.observer.ReportPublished(err)
	}
	if err != nil {
		return nil, fmt.Errorf("publish report request %s: %w", msg.ID, err)
	}

	slog.InfoContext(ctx, "Report request queued",
		"component", "services", "report_id", msg.ID, "year", msg.Year, "month", sel.MonthLabel())
	return msg, nil
}
