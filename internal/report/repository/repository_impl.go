package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/pkg/db"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// linesInOrder sorts lines by creation time. Lines created in one batch
// share a timestamp and fall back to id order.
func linesInOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("created_at asc, id asc")
}

func withLines(stmt *gorm.DB) *gorm.DB {
	return stmt.
		Preload("PerformanceLines", linesInOrder).
		Preload("OpportunityLines", linesInOrder)
}

func (r *repo) FindReport(ctx context.Context, conn *gorm.DB, userID snowflake.ID, date time.Time) (*domain.DailyReport, error) {
	var report domain.DailyReport
	err := withLines(conn.WithContext(ctx)).
		Where("user_id = ? AND date = ?", userID, domain.NormalizeDate(date)).
		Limit(1).
		Find(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == 0 {
		return nil, nil
	}
	return &report, nil
}

func (r *repo) FindReportByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.DailyReport, error) {
	var report domain.DailyReport
	err := withLines(conn.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&report).Error
	if err != nil {
		return nil, err
	}
	if report.ID == 0 {
		return nil, nil
	}
	return &report, nil
}

func (r *repo) CreateReport(ctx context.Context, conn *gorm.DB, report *domain.DailyReport) error {
	err := conn.WithContext(ctx).
		Omit(clause.Associations).
		Create(report).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrConflictRetry
		}
		return err
	}
	return r.AppendLines(ctx, conn, report.ID, report.PerformanceLines, report.OpportunityLines)
}

func (r *repo) PatchReportGauges(ctx context.Context, conn *gorm.DB, reportID snowflake.ID, gauges domain.GaugeMetrics, at time.Time) error {
	cols := gauges.Columns()
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = at
	return conn.WithContext(ctx).
		Model(&domain.DailyReport{}).
		Where("id = ?", reportID).
		Updates(cols).Error
}

func (r *repo) AppendLines(ctx context.Context, conn *gorm.DB, reportID snowflake.ID, perf []domain.PerformanceLine, opp []domain.OpportunityLine) error {
	if len(perf) > 0 {
		for i := range perf {
			perf[i].DailyReportID = reportID
		}
		if err := conn.WithContext(ctx).Create(&perf).Error; err != nil {
			return err
		}
	}
	if len(opp) > 0 {
		for i := range opp {
			opp[i].DailyReportID = reportID
		}
		if err := conn.WithContext(ctx).Create(&opp).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteReport(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	stmt := conn.WithContext(ctx)
	if err := stmt.Where("daily_report_id = ?", id).Delete(&domain.PerformanceLine{}).Error; err != nil {
		return err
	}
	if err := stmt.Where("daily_report_id = ?", id).Delete(&domain.OpportunityLine{}).Error; err != nil {
		return err
	}
	return stmt.Where("id = ?", id).Delete(&domain.DailyReport{}).Error
}

func (r *repo) FindPerformanceLine(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.PerformanceLine, error) {
	var line domain.PerformanceLine
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) UpdatePerformanceLine(ctx context.Context, conn *gorm.DB, id snowflake.ID, fields domain.PerformanceFields) error {
	return conn.WithContext(ctx).
		Model(&domain.PerformanceLine{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"outside_gold": fields.OutsideGold,
			"demand":       fields.Demand,
			"deposit":      fields.Deposit,
			"wealth":       fields.Wealth,
			"loan":         fields.Loan,
			"gold":         fields.Gold,
			"insurance":    fields.Insurance,
			"fund":         fields.Fund,
			"credit_card":  fields.CreditCard,
			"branch":       fields.Branch,
			"product":      fields.Product,
		}).Error
}

func (r *repo) DeletePerformanceLine(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.PerformanceLine{}).Error
}

func (r *repo) FindOpportunityLine(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.OpportunityLine, error) {
	var line domain.OpportunityLine
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) UpdateOpportunityLine(ctx context.Context, conn *gorm.DB, id snowflake.ID, fields domain.OpportunityFields) error {
	return conn.WithContext(ctx).
		Model(&domain.OpportunityLine{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"category": fields.Category,
			"count":    fields.Count,
		}).Error
}

func (r *repo) DeleteOpportunityLine(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.OpportunityLine{}).Error
}

func (r *repo) ListByUser(ctx context.Context, conn *gorm.DB, userID snowflake.ID, page pagination.Pagination) ([]domain.DailyReport, error) {
	var reports []domain.DailyReport
	stmt := withLines(conn.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("date desc, id desc")
	if err := page.Apply(stmt).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *repo) CountByUser(ctx context.Context, conn *gorm.DB, userID snowflake.ID) (int64, error) {
	var total int64
	err := conn.WithContext(ctx).
		Model(&domain.DailyReport{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

func (r *repo) QueryReports(ctx context.Context, conn *gorm.DB, filter domain.ReportFilter) ([]domain.DailyReport, error) {
	var reports []domain.DailyReport
	err := withLines(applyFilter(conn.WithContext(ctx), filter)).
		Preload("Owner").
		Order("daily_reports.date asc, daily_reports.id asc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *repo) ListReports(ctx context.Context, conn *gorm.DB, filter domain.ReportFilter, page pagination.Pagination) ([]domain.DailyReport, error) {
	var reports []domain.DailyReport
	stmt := withLines(applyFilter(conn.WithContext(ctx), filter)).
		Preload("Owner").
		Order("daily_reports.date desc, daily_reports.id desc")
	if err := page.Apply(stmt).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *repo) CountReports(ctx context.Context, conn *gorm.DB, filter domain.ReportFilter) (int64, error) {
	var total int64
	err := applyFilter(conn.WithContext(ctx), filter).
		Model(&domain.DailyReport{}).
		Count(&total).Error
	return total, err
}

// applyFilter restricts by inclusive date bounds and by the owner's
// current organization.
func applyFilter(stmt *gorm.DB, filter domain.ReportFilter) *gorm.DB {
	if !filter.Range.From.IsZero() {
		stmt = stmt.Where("daily_reports.date >= ?", domain.NormalizeDate(filter.Range.From))
	}
	if !filter.Range.To.IsZero() {
		stmt = stmt.Where("daily_reports.date <= ?", domain.NormalizeDate(filter.Range.To))
	}
	if filter.OrgID != nil {
		members := stmt.Session(&gorm.Session{NewDB: true}).
			Table("users").
			Select("id").
			Where("organization_id = ?", *filter.OrgID)
		stmt = stmt.Where("daily_reports.user_id IN (?)", members)
	}
	return stmt
}
