package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
)

// Metrics is the nine-value sales sub-total: eight decimal amounts plus
// the credit card count.
type Metrics struct {
	OutsideGold decimal.Decimal `json:"outside_gold"`
	Demand      decimal.Decimal `json:"demand"`
	Deposit     decimal.Decimal `json:"deposit"`
	Wealth      decimal.Decimal `json:"wealth"`
	Loan        decimal.Decimal `json:"loan"`
	Gold        decimal.Decimal `json:"gold"`
	Insurance   decimal.Decimal `json:"insurance"`
	Fund        decimal.Decimal `json:"fund"`
	CreditCard  int64           `json:"credit_card"`
}

// AddLine accumulates one performance line.
func (m *Metrics) AddLine(f reportdomain.PerformanceFields) {
	m.OutsideGold = m.OutsideGold.Add(f.OutsideGold.Decimal)
	m.Demand = m.Demand.Add(f.Demand.Decimal)
	m.Deposit = m.Deposit.Add(f.Deposit.Decimal)
	m.Wealth = m.Wealth.Add(f.Wealth.Decimal)
	m.Loan = m.Loan.Add(f.Loan.Decimal)
	m.Gold = m.Gold.Add(f.Gold.Decimal)
	m.Insurance = m.Insurance.Add(f.Insurance.Decimal)
	m.Fund = m.Fund.Add(f.Fund.Decimal)
	m.CreditCard += f.CreditCard
}

func (m *Metrics) Add(o Metrics) {
	m.OutsideGold = m.OutsideGold.Add(o.OutsideGold)
	m.Demand = m.Demand.Add(o.Demand)
	m.Deposit = m.Deposit.Add(o.Deposit)
	m.Wealth = m.Wealth.Add(o.Wealth)
	m.Loan = m.Loan.Add(o.Loan)
	m.Gold = m.Gold.Add(o.Gold)
	m.Insurance = m.Insurance.Add(o.Insurance)
	m.Fund = m.Fund.Add(o.Fund)
	m.CreditCard += o.CreditCard
}

// BranchMetrics is one manager's sub-total for one branch.
type BranchMetrics struct {
	Branch string `json:"branch"`
	Metrics
}

// ManagerStatistic is the per-reporter accumulation over a date range.
type ManagerStatistic struct {
	ManagerID   snowflake.ID `json:"manager_id"`
	ManagerName string       `json:"manager_name"`
	ReportCount int          `json:"report_count"`

	// Latest non-null value by report date; zero when never reported.
	ImportedCustomers  int64 `json:"imported_customers"`
	CertifiedCustomers int64 `json:"certified_customers"`
	// Summed daily deltas.
	TodayCoverage int64 `json:"today_coverage"`
	TodayReplies  int64 `json:"today_replies"`

	Metrics
	Opportunities map[string]int64 `json:"opportunities"`
	// Branches holds non-empty branch labels in first-seen order.
	Branches []BranchMetrics `json:"branches"`
}

// Totals aggregates every manager in the result.
type Totals struct {
	// Maximum of the per-manager latest values.
	ImportedCustomers  int64 `json:"imported_customers"`
	CertifiedCustomers int64 `json:"certified_customers"`
	TodayCoverage      int64 `json:"today_coverage"`
	TodayReplies       int64 `json:"today_replies"`

	Metrics
	Opportunities map[string]int64 `json:"opportunities"`
}

// ManagerBranchMetrics is a leaf of the branch-first view.
type ManagerBranchMetrics struct {
	ManagerID   snowflake.ID `json:"manager_id"`
	ManagerName string       `json:"manager_name"`
	Metrics
}

// BranchStatistic groups one branch's managers in first-seen order.
type BranchStatistic struct {
	Branch   string                 `json:"branch"`
	Managers []ManagerBranchMetrics `json:"managers"`
}

// Rollup is the full statistics result. It is rebuilt on every request.
type Rollup struct {
	ReportCount int                `json:"report_count"`
	Managers    []ManagerStatistic `json:"managers"`
	Totals      Totals             `json:"totals"`
	BranchSales []BranchStatistic  `json:"branch_sales"`
}
