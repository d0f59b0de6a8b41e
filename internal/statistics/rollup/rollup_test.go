package rollup

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func i64(v int64) *int64 { return &v }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func amt(v string) reportdomain.Amount { return reportdomain.RequireAmount(v) }

func report(userID snowflake.ID, name string, date time.Time, gauges reportdomain.GaugeMetrics, perf ...reportdomain.PerformanceFields) reportdomain.DailyReport {
	r := reportdomain.DailyReport{
		ID:                 snowflake.ID(date.Unix()) + userID,
		UserID:             userID,
		Date:               date,
		ImportedCustomers:  gauges.ImportedCustomers,
		CertifiedCustomers: gauges.CertifiedCustomers,
		TodayCoverage:      gauges.TodayCoverage,
		TodayReplies:       gauges.TodayReplies,
		Owner:              &userdomain.User{ID: userID, Name: name},
	}
	for _, f := range perf {
		r.PerformanceLines = append(r.PerformanceLines, reportdomain.PerformanceLine{PerformanceFields: f})
	}
	return r
}

func TestComputeLatestWinsAndSums(t *testing.T) {
	reports := []reportdomain.DailyReport{
		report(1, "M", day(1), reportdomain.GaugeMetrics{ImportedCustomers: i64(10)},
			reportdomain.PerformanceFields{Deposit: amt("5"), Branch: "A"}),
		report(1, "M", day(2), reportdomain.GaugeMetrics{ImportedCustomers: i64(12)},
			reportdomain.PerformanceFields{Deposit: amt("7"), Branch: "A"}),
	}

	out := Compute(reports, Options{})

	require.Len(t, out.Managers, 1)
	m := out.Managers[0]
	assert.Equal(t, 2, m.ReportCount)
	assert.Equal(t, int64(12), m.ImportedCustomers)
	assert.True(t, dec("12").Equal(m.Deposit))
	require.Len(t, m.Branches, 1)
	assert.Equal(t, "A", m.Branches[0].Branch)
	assert.True(t, dec("12").Equal(m.Branches[0].Deposit))

	assert.Equal(t, 2, out.ReportCount)
	assert.Equal(t, int64(12), out.Totals.ImportedCustomers)
	assert.True(t, dec("12").Equal(out.Totals.Deposit))

	require.Len(t, out.BranchSales, 1)
	require.Len(t, out.BranchSales[0].Managers, 1)
	assert.Equal(t, "M", out.BranchSales[0].Managers[0].ManagerName)
	assert.True(t, dec("12").Equal(out.BranchSales[0].Managers[0].Deposit))
}

func TestComputeSortsByDateBeforeApplyingLatestWins(t *testing.T) {
	reports := []reportdomain.DailyReport{
		report(1, "M", day(3), reportdomain.GaugeMetrics{CertifiedCustomers: i64(30)}),
		report(1, "M", day(1), reportdomain.GaugeMetrics{CertifiedCustomers: i64(10), ImportedCustomers: i64(4)}),
		report(1, "M", day(4), reportdomain.GaugeMetrics{}),
	}

	out := Compute(reports, Options{})

	require.Len(t, out.Managers, 1)
	assert.Equal(t, int64(30), out.Managers[0].CertifiedCustomers)
	assert.Equal(t, int64(4), out.Managers[0].ImportedCustomers)
}

func TestComputeNullGaugesDefaultToZero(t *testing.T) {
	out := Compute([]reportdomain.DailyReport{
		report(1, "M", day(1), reportdomain.GaugeMetrics{}),
	}, Options{})

	require.Len(t, out.Managers, 1)
	m := out.Managers[0]
	assert.Zero(t, m.ImportedCustomers)
	assert.Zero(t, m.CertifiedCustomers)
	assert.Zero(t, m.TodayCoverage)
	assert.Zero(t, m.TodayReplies)
	assert.True(t, m.Deposit.IsZero())
}

func TestComputeDeltaGaugesAreSummed(t *testing.T) {
	out := Compute([]reportdomain.DailyReport{
		report(1, "M", day(1), reportdomain.GaugeMetrics{TodayCoverage: i64(3), TodayReplies: i64(1)}),
		report(1, "M", day(2), reportdomain.GaugeMetrics{TodayCoverage: i64(4)}),
		report(2, "N", day(2), reportdomain.GaugeMetrics{TodayReplies: i64(5)}),
	}, Options{})

	require.Len(t, out.Managers, 2)
	assert.Equal(t, int64(7), out.Managers[0].TodayCoverage)
	assert.Equal(t, int64(1), out.Managers[0].TodayReplies)
	assert.Equal(t, int64(7), out.Totals.TodayCoverage)
	assert.Equal(t, int64(6), out.Totals.TodayReplies)
}

func TestTotalsTakeMaxOfLatestWinsGauges(t *testing.T) {
	out := Compute([]reportdomain.DailyReport{
		report(1, "M1", day(1), reportdomain.GaugeMetrics{ImportedCustomers: i64(12), CertifiedCustomers: i64(1)}),
		report(2, "M2", day(1), reportdomain.GaugeMetrics{ImportedCustomers: i64(8), CertifiedCustomers: i64(6)}),
	}, Options{})

	assert.Equal(t, int64(12), out.Totals.ImportedCustomers)
	assert.Equal(t, int64(6), out.Totals.CertifiedCustomers)
}

func TestComputeSumsAllAmountsWithoutDrift(t *testing.T) {
	line := reportdomain.PerformanceFields{
		OutsideGold: amt("0.10"),
		Demand:      amt("0.20"),
		Deposit:     amt("0.30"),
		Wealth:      amt("1.01"),
		Loan:        amt("2.02"),
		Gold:        amt("3.03"),
		Insurance:   amt("4.04"),
		Fund:        amt("5.05"),
		CreditCard:  1,
	}
	var reports []reportdomain.DailyReport
	for d := 1; d <= 10; d++ {
		reports = append(reports, report(1, "M", day(d), reportdomain.GaugeMetrics{}, line, line))
	}

	out := Compute(reports, Options{})

	m := out.Managers[0]
	assert.True(t, dec("2").Equal(m.OutsideGold), m.OutsideGold.String())
	assert.True(t, dec("4").Equal(m.Demand))
	assert.True(t, dec("6").Equal(m.Deposit))
	assert.True(t, dec("20.2").Equal(m.Wealth))
	assert.True(t, dec("40.4").Equal(m.Loan))
	assert.True(t, dec("60.6").Equal(m.Gold))
	assert.True(t, dec("80.8").Equal(m.Insurance))
	assert.True(t, dec("101").Equal(m.Fund))
	assert.Equal(t, int64(20), m.CreditCard)
	assert.Empty(t, m.Branches)
}

func TestComputeMergesOpportunitiesByCategory(t *testing.T) {
	r1 := report(1, "M1", day(1), reportdomain.GaugeMetrics{})
	r1.OpportunityLines = []reportdomain.OpportunityLine{
		{OpportunityFields: reportdomain.OpportunityFields{Category: "card", Count: 2}},
		{OpportunityFields: reportdomain.OpportunityFields{Category: "loan", Count: 1}},
	}
	r2 := report(2, "M2", day(1), reportdomain.GaugeMetrics{})
	r2.OpportunityLines = []reportdomain.OpportunityLine{
		{OpportunityFields: reportdomain.OpportunityFields{Category: "card", Count: 3}},
	}

	out := Compute([]reportdomain.DailyReport{r1, r2}, Options{})

	assert.Equal(t, map[string]int64{"card": 2, "loan": 1}, out.Managers[0].Opportunities)
	assert.Equal(t, map[string]int64{"card": 3}, out.Managers[1].Opportunities)
	assert.Equal(t, map[string]int64{"card": 5, "loan": 1}, out.Totals.Opportunities)
}

func TestBranchSalesGroupsBranchThenManager(t *testing.T) {
	reports := []reportdomain.DailyReport{
		report(2, "M2", day(2), reportdomain.GaugeMetrics{},
			reportdomain.PerformanceFields{Loan: amt("1"), Branch: "B"},
			reportdomain.PerformanceFields{Loan: amt("2"), Branch: "A"}),
		report(1, "M1", day(1), reportdomain.GaugeMetrics{},
			reportdomain.PerformanceFields{Loan: amt("4"), Branch: "A"},
			reportdomain.PerformanceFields{Loan: amt("8")}),
	}

	out := BranchSales(reports, Options{UnassignedBranchLabel: "none"})

	require.Len(t, out, 3)
	assert.Equal(t, "A", out[0].Branch)
	assert.Equal(t, "none", out[1].Branch)
	assert.Equal(t, "B", out[2].Branch)

	require.Len(t, out[0].Managers, 2)
	assert.Equal(t, "M1", out[0].Managers[0].ManagerName)
	assert.True(t, dec("4").Equal(out[0].Managers[0].Loan))
	assert.Equal(t, "M2", out[0].Managers[1].ManagerName)
	assert.True(t, dec("2").Equal(out[0].Managers[1].Loan))

	require.Len(t, out[1].Managers, 1)
	assert.True(t, dec("8").Equal(out[1].Managers[0].Loan))
}

func TestBranchSalesDefaultLabel(t *testing.T) {
	out := BranchSales([]reportdomain.DailyReport{
		report(1, "M", day(1), reportdomain.GaugeMetrics{}, reportdomain.PerformanceFields{Branch: "  "}),
	}, Options{})

	require.Len(t, out, 1)
	assert.Equal(t, DefaultUnassignedBranchLabel, out[0].Branch)
}

func TestBranchSalesKeysManagersByID(t *testing.T) {
	out := BranchSales([]reportdomain.DailyReport{
		report(1, "Chen", day(1), reportdomain.GaugeMetrics{}, reportdomain.PerformanceFields{Fund: amt("1"), Branch: "A"}),
		report(2, "Chen", day(1), reportdomain.GaugeMetrics{}, reportdomain.PerformanceFields{Fund: amt("2"), Branch: "A"}),
	}, Options{})

	require.Len(t, out, 1)
	require.Len(t, out[0].Managers, 2)
	assert.Equal(t, snowflake.ID(1), out[0].Managers[0].ManagerID)
	assert.Equal(t, snowflake.ID(2), out[0].Managers[1].ManagerID)
	assert.Equal(t, "Chen", out[0].Managers[0].ManagerName)
	assert.Equal(t, "Chen", out[0].Managers[1].ManagerName)
	assert.True(t, dec("1").Equal(out[0].Managers[0].Fund))
	assert.True(t, dec("2").Equal(out[0].Managers[1].Fund))
}

func TestComputeEmpty(t *testing.T) {
	out := Compute(nil, Options{})
	assert.Zero(t, out.ReportCount)
	assert.Empty(t, out.Managers)
	assert.Empty(t, out.BranchSales)
	assert.NotNil(t, out.Totals.Opportunities)
}
