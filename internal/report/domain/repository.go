package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository is the report store. Lookups return nil, nil when nothing matches.
type Repository interface {
	FindReport(ctx context.Context, db *gorm.DB, userID snowflake.ID, date time.Time) (*DailyReport, error)
	FindReportByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DailyReport, error)
	// CreateReport inserts the report and its lines. It returns
	// ErrConflictRetry when a report for (user, date) already exists.
	CreateReport(ctx context.Context, db *gorm.DB, report *DailyReport) error
	PatchReportGauges(ctx context.Context, db *gorm.DB, reportID snowflake.ID, gauges GaugeMetrics, at time.Time) error
	AppendLines(ctx context.Context, db *gorm.DB, reportID snowflake.ID, perf []PerformanceLine, opp []OpportunityLine) error
	DeleteReport(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindPerformanceLine(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PerformanceLine, error)
	UpdatePerformanceLine(ctx context.Context, db *gorm.DB, id snowflake.ID, fields PerformanceFields) error
	DeletePerformanceLine(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindOpportunityLine(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OpportunityLine, error)
	UpdateOpportunityLine(ctx context.Context, db *gorm.DB, id snowflake.ID, fields OpportunityFields) error
	DeleteOpportunityLine(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, page pagination.Pagination) ([]DailyReport, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)

	// QueryReports returns every matching report with lines and owner,
	// ordered by date ascending.
	QueryReports(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]DailyReport, error)
	// ListReports pages matching reports by date descending.
	ListReports(ctx context.Context, db *gorm.DB, filter ReportFilter, page pagination.Pagination) ([]DailyReport, error)
	CountReports(ctx context.Context, db *gorm.DB, filter ReportFilter) (int64, error)
}
