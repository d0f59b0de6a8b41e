package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/authorization"
	"github.com/smallbiznis/fieldreport/internal/clock"
	"github.com/smallbiznis/fieldreport/internal/config"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	reportrepository "github.com/smallbiznis/fieldreport/internal/report/repository"
	reportservice "github.com/smallbiznis/fieldreport/internal/report/service"
	"github.com/smallbiznis/fieldreport/internal/statistics/domain"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	userrepository "github.com/smallbiznis/fieldreport/internal/user/repository"
	"github.com/smallbiznis/fieldreport/pkg/db"
	"github.com/smallbiznis/fieldreport/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db      *gorm.DB
	node    *snowflake.Node
	reports reportdomain.Service
	stats   domain.Service
	now     time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	conn := db.NewTest(t,
		&userdomain.User{},
		&reportdomain.DailyReport{},
		&reportdomain.PerformanceLine{},
		&reportdomain.OpportunityLine{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	reporting := config.NewStaticReportingConfigHolder(config.DefaultReportingConfig())
	repo := reportrepository.Provide()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	return &env{
		db:   conn,
		node: node,
		now:  now,
		reports: reportservice.New(reportservice.Params{
			DB:        conn,
			Log:       zap.NewNop(),
			GenID:     node,
			Clock:     clock.NewFakeClock(now),
			Repo:      repo,
			Authz:     authz,
			Reporting: reporting,
		}),
		stats: New(Params{
			DB:        conn,
			Log:       zap.NewNop(),
			Reports:   repo,
			Users:     userrepository.Provide(),
			Authz:     authz,
			Reporting: reporting,
		}),
	}
}

func (e *env) user(t *testing.T, name string, role actor.Role, org *snowflake.ID) actor.Actor {
	t.Helper()
	u := userdomain.User{
		ID:             e.node.Generate(),
		Name:           name,
		Role:           role,
		OrganizationID: org,
		CreatedAt:      e.now,
		UpdatedAt:      e.now,
	}
	u.Username = fmt.Sprintf("%s-%s", role, u.ID)
	require.NoError(t, e.db.Create(&u).Error)
	return u.Actor()
}

func (e *env) submit(t *testing.T, a actor.Actor, req reportdomain.SubmitRequest) {
	t.Helper()
	_, err := e.reports.Submit(context.Background(), a, req)
	require.NoError(t, err)
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func i64(v int64) *int64 { return &v }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func amt(v string) reportdomain.Amount { return reportdomain.RequireAmount(v) }

func TestRollupEndToEndLatestWinsAndSums(t *testing.T) {
	e := newEnv(t)
	org := e.node.Generate()
	manager := e.user(t, "M", actor.RoleReporter, &org)
	supervisor := e.user(t, "S", actor.RoleSupervisor, &org)

	e.submit(t, manager, reportdomain.SubmitRequest{
		Date:             day(1),
		Gauges:           reportdomain.GaugeMetrics{ImportedCustomers: i64(10)},
		PerformanceLines: []reportdomain.PerformanceFields{{Deposit: amt("5"), Branch: "A"}},
	})
	e.submit(t, manager, reportdomain.SubmitRequest{
		Date:             day(2),
		Gauges:           reportdomain.GaugeMetrics{ImportedCustomers: i64(12)},
		PerformanceLines: []reportdomain.PerformanceFields{{Deposit: amt("7"), Branch: "A"}},
	})
	// Outside the range.
	e.submit(t, manager, reportdomain.SubmitRequest{
		Date:             day(3),
		Gauges:           reportdomain.GaugeMetrics{ImportedCustomers: i64(99)},
		PerformanceLines: []reportdomain.PerformanceFields{{Deposit: amt("100"), Branch: "A"}},
	})

	out, err := e.stats.Rollup(context.Background(), supervisor, domain.RangeRequest{Start: day(1), End: day(2)})
	require.NoError(t, err)

	assert.Equal(t, 2, out.ReportCount)
	require.Len(t, out.Managers, 1)
	m := out.Managers[0]
	assert.Equal(t, manager.ID, m.ManagerID)
	assert.Equal(t, "M", m.ManagerName)
	assert.Equal(t, int64(12), m.ImportedCustomers)
	assert.True(t, dec("12").Equal(m.Deposit), m.Deposit.String())
	require.Len(t, m.Branches, 1)
	assert.Equal(t, "A", m.Branches[0].Branch)
	assert.True(t, dec("12").Equal(m.Branches[0].Deposit))

	assert.True(t, dec("12").Equal(out.Totals.Deposit))
	require.Len(t, out.BranchSales, 1)
	assert.Equal(t, "A", out.BranchSales[0].Branch)
}

func TestRollupSupervisorSeesOnlyOwnOrganization(t *testing.T) {
	e := newEnv(t)
	orgX := e.node.Generate()
	orgY := e.node.Generate()
	m1 := e.user(t, "M1", actor.RoleReporter, &orgX)
	m2 := e.user(t, "M2", actor.RoleReporter, &orgY)
	supervisor := e.user(t, "SX", actor.RoleSupervisor, &orgX)

	e.submit(t, m1, reportdomain.SubmitRequest{
		Date:             day(1),
		PerformanceLines: []reportdomain.PerformanceFields{{Loan: amt("1"), Branch: "A"}},
	})
	e.submit(t, m2, reportdomain.SubmitRequest{
		Date:             day(1),
		PerformanceLines: []reportdomain.PerformanceFields{{Loan: amt("2"), Branch: "B"}},
	})

	out, err := e.stats.Rollup(context.Background(), supervisor, domain.RangeRequest{Start: day(1), End: day(1)})
	require.NoError(t, err)

	require.Len(t, out.Managers, 1)
	assert.Equal(t, m1.ID, out.Managers[0].ManagerID)
	require.Len(t, out.BranchSales, 1)
	require.Len(t, out.BranchSales[0].Managers, 1)
	assert.Equal(t, m1.ID, out.BranchSales[0].Managers[0].ManagerID)
	assert.True(t, dec("1").Equal(out.Totals.Loan))

	branches, err := e.stats.BranchSales(context.Background(), supervisor, domain.RangeRequest{Start: day(1), End: day(1)})
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "A", branches[0].Branch)
}

func TestRollupAdminMatchesSupervisorForSameOrganization(t *testing.T) {
	e := newEnv(t)
	orgX := e.node.Generate()
	orgY := e.node.Generate()
	m1 := e.user(t, "M1", actor.RoleReporter, &orgX)
	m2 := e.user(t, "M2", actor.RoleReporter, &orgY)
	supervisor := e.user(t, "SX", actor.RoleSupervisor, &orgX)
	admin := e.user(t, "Root", actor.RoleAdmin, nil)

	for d := 1; d <= 3; d++ {
		e.submit(t, m1, reportdomain.SubmitRequest{
			Date:             day(d),
			Gauges:           reportdomain.GaugeMetrics{CertifiedCustomers: i64(int64(d)), TodayReplies: i64(2)},
			PerformanceLines: []reportdomain.PerformanceFields{{Gold: amt("1.25"), CreditCard: 1}},
		})
		e.submit(t, m2, reportdomain.SubmitRequest{
			Date:             day(d),
			PerformanceLines: []reportdomain.PerformanceFields{{Gold: amt("9")}},
		})
	}

	rng := domain.RangeRequest{Start: day(1), End: day(3)}
	scoped, err := e.stats.Rollup(context.Background(), supervisor, rng)
	require.NoError(t, err)
	global, err := e.stats.Rollup(context.Background(), admin, rng)
	require.NoError(t, err)

	require.Len(t, scoped.Managers, 1)
	require.Len(t, global.Managers, 2)

	var fromAdmin *domain.ManagerStatistic
	for i := range global.Managers {
		if global.Managers[i].ManagerID == m1.ID {
			fromAdmin = &global.Managers[i]
		}
	}
	require.NotNil(t, fromAdmin)
	assert.Equal(t, scoped.Managers[0], *fromAdmin)
	assert.Equal(t, int64(3), fromAdmin.CertifiedCustomers)
	assert.Equal(t, int64(6), fromAdmin.TodayReplies)
	assert.True(t, dec("3.75").Equal(fromAdmin.Gold))
	assert.Equal(t, int64(3), fromAdmin.CreditCard)
}

func TestRollupRoleErrors(t *testing.T) {
	e := newEnv(t)
	org := e.node.Generate()
	reporter := e.user(t, "M", actor.RoleReporter, &org)
	orphan := e.user(t, "S", actor.RoleSupervisor, nil)
	ctx := context.Background()

	_, err := e.stats.Rollup(ctx, reporter, domain.RangeRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrUnauthorized)

	_, err = e.stats.Rollup(ctx, orphan, domain.RangeRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrConfiguration)

	_, err = e.stats.ListReports(ctx, orphan, domain.ListReportsRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrConfiguration)

	_, err = e.stats.ListManagers(ctx, reporter)
	assert.ErrorIs(t, err, reportdomain.ErrUnauthorized)

	admin := e.user(t, "Root", actor.RoleAdmin, nil)
	_, err = e.stats.Rollup(ctx, admin, domain.RangeRequest{Start: day(5), End: day(1)})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidRange)
}

func TestListReportsScopedAndPaged(t *testing.T) {
	e := newEnv(t)
	orgX := e.node.Generate()
	orgY := e.node.Generate()
	m1 := e.user(t, "M1", actor.RoleReporter, &orgX)
	m2 := e.user(t, "M2", actor.RoleReporter, &orgY)
	supervisor := e.user(t, "SX", actor.RoleSupervisor, &orgX)

	for d := 1; d <= 4; d++ {
		e.submit(t, m1, reportdomain.SubmitRequest{Date: day(d)})
	}
	e.submit(t, m2, reportdomain.SubmitRequest{Date: day(2)})

	resp, err := e.stats.ListReports(context.Background(), supervisor, domain.ListReportsRequest{
		RangeRequest: domain.RangeRequest{Start: day(2)},
		Page:         pagination.Pagination{Limit: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.Total)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Reports, 2)
	assert.True(t, day(4).Equal(resp.Reports[0].Date))
	assert.True(t, day(3).Equal(resp.Reports[1].Date))
	assert.Equal(t, "M1", resp.Reports[0].OwnerName())
}

func TestListManagersScopedWithCounts(t *testing.T) {
	e := newEnv(t)
	orgX := e.node.Generate()
	orgY := e.node.Generate()
	zed := e.user(t, "Zed", actor.RoleReporter, &orgX)
	e.user(t, "Amy", actor.RoleReporter, &orgX)
	e.user(t, "Other", actor.RoleReporter, &orgY)
	supervisor := e.user(t, "SX", actor.RoleSupervisor, &orgX)

	e.submit(t, zed, reportdomain.SubmitRequest{Date: day(1)})
	e.submit(t, zed, reportdomain.SubmitRequest{Date: day(2)})

	managers, err := e.stats.ListManagers(context.Background(), supervisor)
	require.NoError(t, err)

	require.Len(t, managers, 2)
	assert.Equal(t, "Amy", managers[0].Name)
	assert.Equal(t, int64(0), managers[0].ReportCount)
	assert.Equal(t, "Zed", managers[1].Name)
	assert.Equal(t, int64(2), managers[1].ReportCount)
}
