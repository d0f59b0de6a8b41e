package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/authorization"
	"github.com/smallbiznis/fieldreport/internal/config"
	obsmetrics "github.com/smallbiznis/fieldreport/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/internal/scope"
	"github.com/smallbiznis/fieldreport/internal/statistics/domain"
	"github.com/smallbiznis/fieldreport/internal/statistics/rollup"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Reports   reportdomain.Repository
	Users     userdomain.Repository
	Authz     authorization.Service
	Reporting *config.ReportingConfigHolder `optional:"true"`
	Metrics   *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	reports   reportdomain.Repository
	users     userdomain.Repository
	authz     authorization.Service
	reporting *config.ReportingConfigHolder
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("statistics.service"),
		reports:   p.Reports,
		users:     p.Users,
		authz:     p.Authz,
		reporting: p.Reporting,
		metrics:   p.Metrics,
	}
}

func (s *Service) Rollup(ctx context.Context, a actor.Actor, req domain.RangeRequest) (domain.Rollup, error) {
	filter, err := s.authorize(a, authorization.ObjectStatistics, authorization.ActionStatisticsView, req.DateRange())
	if err != nil {
		return domain.Rollup{}, err
	}

	reports, err := s.reports.QueryReports(ctx, s.db, filter)
	if err != nil {
		return domain.Rollup{}, reportdomain.NewPersistenceError("query_reports", err)
	}

	result := rollup.Compute(reports, s.options())
	s.metrics.RecordRollup(ctx, "rollup", scope.Name(filter), len(reports))
	s.log.Debug("rollup computed",
		zap.String("actor_id", a.ID.String()),
		zap.String("scope", scope.Name(filter)),
		zap.String("from", formatDate(filter.Range.From)),
		zap.String("to", formatDate(filter.Range.To)),
		zap.Int("reports", result.ReportCount),
		zap.Int("managers", len(result.Managers)),
	)
	return result, nil
}

func (s *Service) BranchSales(ctx context.Context, a actor.Actor, req domain.RangeRequest) ([]domain.BranchStatistic, error) {
	filter, err := s.authorize(a, authorization.ObjectStatistics, authorization.ActionStatisticsView, req.DateRange())
	if err != nil {
		return nil, err
	}

	reports, err := s.reports.QueryReports(ctx, s.db, filter)
	if err != nil {
		return nil, reportdomain.NewPersistenceError("query_reports", err)
	}

	s.metrics.RecordRollup(ctx, "branch_sales", scope.Name(filter), len(reports))
	return rollup.BranchSales(reports, s.options()), nil
}

// ListReports pages the reports visible to a supervisor or admin, newest first.
func (s *Service) ListReports(ctx context.Context, a actor.Actor, req domain.ListReportsRequest) (reportdomain.ListReportsResponse, error) {
	filter, err := s.authorize(a, authorization.ObjectDailyReport, authorization.ActionReportList, req.DateRange())
	if err != nil {
		return reportdomain.ListReportsResponse{}, err
	}

	page := req.Page.Normalize(s.reportingConfig().ReportListPageSize)

	total, err := s.reports.CountReports(ctx, s.db, filter)
	if err != nil {
		return reportdomain.ListReportsResponse{}, reportdomain.NewPersistenceError("count_reports", err)
	}
	reports, err := s.reports.ListReports(ctx, s.db, filter, page)
	if err != nil {
		return reportdomain.ListReportsResponse{}, reportdomain.NewPersistenceError("list_reports", err)
	}
	if reports == nil {
		reports = []reportdomain.DailyReport{}
	}

	return reportdomain.ListReportsResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Reports:  reports,
	}, nil
}

// ListManagers returns the reporters in the caller's scope with their
// report counts.
func (s *Service) ListManagers(ctx context.Context, a actor.Actor) ([]userdomain.ReporterSummary, error) {
	filter, err := s.authorize(a, authorization.ObjectManager, authorization.ActionManagerList, reportdomain.DateRange{})
	if err != nil {
		return nil, err
	}

	managers, err := s.users.ListReporters(ctx, s.db, filter.OrgID)
	if err != nil {
		return nil, reportdomain.NewPersistenceError("list_reporters", err)
	}
	if managers == nil {
		managers = []userdomain.ReporterSummary{}
	}
	return managers, nil
}

// authorize checks the capability, then narrows it to the caller's tenant.
func (s *Service) authorize(a actor.Actor, object, action string, rng reportdomain.DateRange) (reportdomain.ReportFilter, error) {
	allowed, err := s.authz.Can(a, object, action)
	if err != nil {
		return reportdomain.ReportFilter{}, err
	}
	if !allowed {
		return reportdomain.ReportFilter{}, reportdomain.ErrUnauthorized
	}

	filter, err := scope.Scope(a, rng)
	if err != nil {
		if errors.Is(err, reportdomain.ErrConfiguration) {
			s.log.Warn("supervisor has no organization",
				zap.String("actor_id", a.ID.String()),
			)
		}
		return reportdomain.ReportFilter{}, err
	}
	return filter, nil
}

func (s *Service) reportingConfig() config.ReportingConfig {
	return s.reporting.Get()
}

func (s *Service) options() rollup.Options {
	return rollup.Options{UnassignedBranchLabel: s.reportingConfig().UnassignedBranchLabel}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
