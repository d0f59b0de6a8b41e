package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/authorization"
	"github.com/smallbiznis/fieldreport/internal/clock"
	"github.com/smallbiznis/fieldreport/internal/config"
	obsmetrics "github.com/smallbiznis/fieldreport/internal/observability/metrics"
	"github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outcomeCreated = "created"
	outcomePatched = "patched"
	outcomeFailed  = "failed"

	lineKindPerformance = "performance"
	lineKindOpportunity = "opportunity"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Authz     authorization.Service
	Reporting *config.ReportingConfigHolder `optional:"true"`
	Metrics   *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	authz     authorization.Service
	reporting *config.ReportingConfigHolder
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		clock:     clk,
		repo:      p.Repo,
		authz:     p.Authz,
		reporting: p.Reporting,
		metrics:   p.Metrics,
	}
}

// Submit creates the actor's report for the date or merges into the
// existing one. Supplied gauges overwrite, unsupplied gauges are kept and
// lines are appended after the existing ones.
func (s *Service) Submit(ctx context.Context, a actor.Actor, req domain.SubmitRequest) (domain.DailyReport, error) {
	if err := s.require(a, authorization.ObjectDailyReport, authorization.ActionReportSubmit); err != nil {
		return domain.DailyReport{}, err
	}

	in, err := s.prepareSubmission(req)
	if err != nil {
		return domain.DailyReport{}, err
	}

	log := s.log.With(
		zap.String("submission_id", ulid.Make().String()),
		zap.String("actor_id", a.ID.String()),
		zap.String("date", in.date.Format(time.DateOnly)),
	)

	report, outcome, err := s.submitOnce(ctx, a, in)
	if errors.Is(err, domain.ErrConflictRetry) {
		// Another request created the row first; the second pass sees it
		// and merges as a patch.
		log.Info("report create lost race, retrying as patch")
		report, outcome, err = s.submitOnce(ctx, a, in)
		if errors.Is(err, domain.ErrConflictRetry) {
			err = domain.NewPersistenceError("submit_report", err)
		}
	}
	if err != nil {
		s.metrics.RecordReportSubmission(ctx, outcomeFailed)
		log.Warn("report submission failed", zap.Error(err))
		return domain.DailyReport{}, err
	}

	s.metrics.RecordReportSubmission(ctx, outcome)
	log.Info("report submitted",
		zap.String("report_id", report.ID.String()),
		zap.String("outcome", outcome),
		zap.Int("performance_lines", len(in.perf)),
		zap.Int("opportunity_lines", len(in.opp)),
	)
	return report, nil
}

type submission struct {
	date   time.Time
	gauges domain.GaugeMetrics
	perf   []domain.PerformanceFields
	opp    []domain.OpportunityFields
}

func (s *Service) prepareSubmission(req domain.SubmitRequest) (submission, error) {
	if req.Date.IsZero() {
		return submission{}, domain.ErrInvalidDate
	}
	if err := req.Gauges.Validate(); err != nil {
		return submission{}, err
	}

	limit := s.settings().MaxLinesPerSubmission
	if limit > 0 && len(req.PerformanceLines)+len(req.OpportunityLines) > limit {
		return submission{}, domain.ErrTooManyLines
	}

	in := submission{
		date:   domain.NormalizeDate(req.Date),
		gauges: req.Gauges,
		perf:   make([]domain.PerformanceFields, 0, len(req.PerformanceLines)),
		opp:    make([]domain.OpportunityFields, 0, len(req.OpportunityLines)),
	}
	for _, line := range req.PerformanceLines {
		line = line.Normalize()
		if err := line.Validate(); err != nil {
			return submission{}, err
		}
		in.perf = append(in.perf, line)
	}
	for _, line := range req.OpportunityLines {
		line = line.Normalize()
		if err := line.Validate(); err != nil {
			return submission{}, err
		}
		in.opp = append(in.opp, line)
	}
	return in, nil
}

// submitOnce runs one find-then-create-or-patch pass in its own
// transaction. A lost create race rolls back and returns ErrConflictRetry.
func (s *Service) submitOnce(ctx context.Context, a actor.Actor, in submission) (domain.DailyReport, string, error) {
	var (
		report  *domain.DailyReport
		outcome string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindReport(ctx, tx, a.ID, in.date)
		if err != nil {
			return domain.NewPersistenceError("find_report", err)
		}

		now := s.clock.Now().UTC()
		perf, opp := s.buildLines(in, now)

		var reportID snowflake.ID
		if existing == nil {
			created := domain.DailyReport{
				ID:                 s.genID.Generate(),
				UserID:             a.ID,
				Date:               in.date,
				ImportedCustomers:  in.gauges.ImportedCustomers,
				CertifiedCustomers: in.gauges.CertifiedCustomers,
				TodayCoverage:      in.gauges.TodayCoverage,
				TodayReplies:       in.gauges.TodayReplies,
				CreatedAt:          now,
				UpdatedAt:          now,
				PerformanceLines:   perf,
				OpportunityLines:   opp,
			}
			if err := s.repo.CreateReport(ctx, tx, &created); err != nil {
				if errors.Is(err, domain.ErrConflictRetry) {
					return err
				}
				return domain.NewPersistenceError("create_report", err)
			}
			reportID = created.ID
			outcome = outcomeCreated
		} else {
			if err := s.repo.PatchReportGauges(ctx, tx, existing.ID, in.gauges, now); err != nil {
				return domain.NewPersistenceError("patch_report", err)
			}
			if err := s.repo.AppendLines(ctx, tx, existing.ID, perf, opp); err != nil {
				return domain.NewPersistenceError("append_lines", err)
			}
			reportID = existing.ID
			outcome = outcomePatched
		}

		report, err = s.repo.FindReportByID(ctx, tx, reportID)
		if err != nil {
			return domain.NewPersistenceError("reload_report", err)
		}
		if report == nil {
			return domain.NewPersistenceError("reload_report", domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return domain.DailyReport{}, "", err
	}
	return *report, outcome, nil
}

func (s *Service) buildLines(in submission, now time.Time) ([]domain.PerformanceLine, []domain.OpportunityLine) {
	perf := make([]domain.PerformanceLine, 0, len(in.perf))
	for _, fields := range in.perf {
		perf = append(perf, domain.PerformanceLine{
			ID:                s.genID.Generate(),
			PerformanceFields: fields,
			CreatedAt:         now,
		})
	}
	opp := make([]domain.OpportunityLine, 0, len(in.opp))
	for _, fields := range in.opp {
		opp = append(opp, domain.OpportunityLine{
			ID:                s.genID.Generate(),
			OpportunityFields: fields,
			CreatedAt:         now,
		})
	}
	return perf, opp
}

// GetByDate returns the actor's report for the date, or nil when none exists.
func (s *Service) GetByDate(ctx context.Context, a actor.Actor, date time.Time) (*domain.DailyReport, error) {
	if err := s.require(a, authorization.ObjectDailyReport, authorization.ActionReportViewOwn); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	report, err := s.repo.FindReport(ctx, s.db, a.ID, date)
	if err != nil {
		return nil, domain.NewPersistenceError("find_report", err)
	}
	return report, nil
}

func (s *Service) ListMine(ctx context.Context, a actor.Actor, page pagination.Pagination) (domain.ListReportsResponse, error) {
	if err := s.require(a, authorization.ObjectDailyReport, authorization.ActionReportViewOwn); err != nil {
		return domain.ListReportsResponse{}, err
	}

	page = page.Normalize(s.settings().HistoryPageSize)

	total, err := s.repo.CountByUser(ctx, s.db, a.ID)
	if err != nil {
		return domain.ListReportsResponse{}, domain.NewPersistenceError("count_reports", err)
	}
	reports, err := s.repo.ListByUser(ctx, s.db, a.ID, page)
	if err != nil {
		return domain.ListReportsResponse{}, domain.NewPersistenceError("list_reports", err)
	}
	if reports == nil {
		reports = []domain.DailyReport{}
	}

	return domain.ListReportsResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Reports:  reports,
	}, nil
}

func (s *Service) DeleteReport(ctx context.Context, a actor.Actor, id snowflake.ID) error {
	if err := s.require(a, authorization.ObjectDailyReport, authorization.ActionReportDelete); err != nil {
		return err
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := s.repo.FindReportByID(ctx, tx, id)
		if err != nil {
			return domain.NewPersistenceError("find_report", err)
		}
		if report == nil {
			return domain.ErrNotFound
		}
		if report.UserID != a.ID {
			return domain.ErrForbidden
		}
		if err := s.repo.DeleteReport(ctx, tx, id); err != nil {
			return domain.NewPersistenceError("delete_report", err)
		}
		s.log.Info("report deleted",
			zap.String("report_id", id.String()),
			zap.String("actor_id", a.ID.String()),
		)
		return nil
	})
}

func (s *Service) UpdatePerformanceLine(ctx context.Context, a actor.Actor, id snowflake.ID, fields domain.PerformanceFields) (domain.PerformanceLine, error) {
	if err := s.require(a, authorization.ObjectReportLine, authorization.ActionLineUpdate); err != nil {
		return domain.PerformanceLine{}, err
	}
	if id == 0 {
		return domain.PerformanceLine{}, domain.ErrInvalidID
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return domain.PerformanceLine{}, err
	}

	var updated domain.PerformanceLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.repo.FindPerformanceLine(ctx, tx, id)
		if err != nil {
			return domain.NewPersistenceError("find_line", err)
		}
		if line == nil {
			return domain.ErrNotFound
		}
		if err := s.ensureOwner(ctx, tx, a, line.DailyReportID); err != nil {
			return err
		}
		if err := s.repo.UpdatePerformanceLine(ctx, tx, id, fields); err != nil {
			return domain.NewPersistenceError("update_line", err)
		}
		updated = *line
		updated.PerformanceFields = fields
		return nil
	})
	if err != nil {
		return domain.PerformanceLine{}, err
	}
	s.metrics.RecordLineMutation(ctx, lineKindPerformance, "update")
	return updated, nil
}

func (s *Service) DeletePerformanceLine(ctx context.Context, a actor.Actor, id snowflake.ID) error {
	if err := s.require(a, authorization.ObjectReportLine, authorization.ActionLineDelete); err != nil {
		return err
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.repo.FindPerformanceLine(ctx, tx, id)
		if err != nil {
			return domain.NewPersistenceError("find_line", err)
		}
		if line == nil {
			return domain.ErrNotFound
		}
		if err := s.ensureOwner(ctx, tx, a, line.DailyReportID); err != nil {
			return err
		}
		if err := s.repo.DeletePerformanceLine(ctx, tx, id); err != nil {
			return domain.NewPersistenceError("delete_line", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordLineMutation(ctx, lineKindPerformance, "delete")
	return nil
}

func (s *Service) UpdateOpportunityLine(ctx context.Context, a actor.Actor, id snowflake.ID, fields domain.OpportunityFields) (domain.OpportunityLine, error) {
	if err := s.require(a, authorization.ObjectReportLine, authorization.ActionLineUpdate); err != nil {
		return domain.OpportunityLine{}, err
	}
	if id == 0 {
		return domain.OpportunityLine{}, domain.ErrInvalidID
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return domain.OpportunityLine{}, err
	}

	var updated domain.OpportunityLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.repo.FindOpportunityLine(ctx, tx, id)
		if err != nil {
			return domain.NewPersistenceError("find_line", err)
		}
		if line == nil {
			return domain.ErrNotFound
		}
		if err := s.ensureOwner(ctx, tx, a, line.DailyReportID); err != nil {
			return err
		}
		if err := s.repo.UpdateOpportunityLine(ctx, tx, id, fields); err != nil {
			return domain.NewPersistenceError("update_line", err)
		}
		updated = *line
		updated.OpportunityFields = fields
		return nil
	})
	if err != nil {
		return domain.OpportunityLine{}, err
	}
	s.metrics.RecordLineMutation(ctx, lineKindOpportunity, "update")
	return updated, nil
}

func (s *Service) DeleteOpportunityLine(ctx context.Context, a actor.Actor, id snowflake.ID) error {
	if err := s.require(a, authorization.ObjectReportLine, authorization.ActionLineDelete); err != nil {
		return err
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.repo.FindOpportunityLine(ctx, tx, id)
		if err != nil {
			return domain.NewPersistenceError("find_line", err)
		}
		if line == nil {
			return domain.ErrNotFound
		}
		if err := s.ensureOwner(ctx, tx, a, line.DailyReportID); err != nil {
			return err
		}
		if err := s.repo.DeleteOpportunityLine(ctx, tx, id); err != nil {
			return domain.NewPersistenceError("delete_line", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordLineMutation(ctx, lineKindOpportunity, "delete")
	return nil
}

// ensureOwner fails with ErrForbidden unless the report belongs to a.
func (s *Service) ensureOwner(ctx context.Context, tx *gorm.DB, a actor.Actor, reportID snowflake.ID) error {
	report, err := s.repo.FindReportByID(ctx, tx, reportID)
	if err != nil {
		return domain.NewPersistenceError("find_report", err)
	}
	if report == nil || report.UserID != a.ID {
		s.log.Warn("line access denied",
			zap.String("actor_id", a.ID.String()),
			zap.String("report_id", reportID.String()),
		)
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) require(a actor.Actor, object, action string) error {
	allowed, err := s.authz.Can(a, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *Service) settings() config.ReportingConfig {
	return s.reporting.Get()
}
