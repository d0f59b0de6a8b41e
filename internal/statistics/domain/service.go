package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/fieldreport/internal/actor"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
)

// RangeRequest is an inclusive date range. Zero bounds are open.
type RangeRequest struct {
	Start time.Time
	End   time.Time
}

func (r RangeRequest) DateRange() reportdomain.DateRange {
	return reportdomain.DateRange{From: r.Start, To: r.End}
}

type ListReportsRequest struct {
	RangeRequest
	Page pagination.Pagination
}

type Service interface {
	Rollup(ctx context.Context, a actor.Actor, req RangeRequest) (Rollup, error)
	BranchSales(ctx context.Context, a actor.Actor, req RangeRequest) ([]BranchStatistic, error)
	ListReports(ctx context.Context, a actor.Actor, req ListReportsRequest) (reportdomain.ListReportsResponse, error)
	ListManagers(ctx context.Context, a actor.Actor) ([]userdomain.ReporterSummary, error)
}
