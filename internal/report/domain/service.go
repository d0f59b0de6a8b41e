package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
)

type SubmitRequest struct {
	Date             time.Time
	Gauges           GaugeMetrics
	PerformanceLines []PerformanceFields
	OpportunityLines []OpportunityFields
}

type ListReportsResponse struct {
	pagination.PageInfo
	Reports []DailyReport `json:"reports"`
}

// Service is the report ingestion engine plus the reporter's own
// history and line editing operations.
type Service interface {
	Submit(ctx context.Context, a actor.Actor, req SubmitRequest) (DailyReport, error)
	GetByDate(ctx context.Context, a actor.Actor, date time.Time) (*DailyReport, error)
	ListMine(ctx context.Context, a actor.Actor, page pagination.Pagination) (ListReportsResponse, error)
	DeleteReport(ctx context.Context, a actor.Actor, id snowflake.ID) error

	UpdatePerformanceLine(ctx context.Context, a actor.Actor, id snowflake.ID, fields PerformanceFields) (PerformanceLine, error)
	DeletePerformanceLine(ctx context.Context, a actor.Actor, id snowflake.ID) error
	UpdateOpportunityLine(ctx context.Context, a actor.Actor, id snowflake.ID, fields OpportunityFields) (OpportunityLine, error)
	DeleteOpportunityLine(ctx context.Context, a actor.Actor, id snowflake.ID) error
}
