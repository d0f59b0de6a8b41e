package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
)

// DailyReport is one reporter's report for one calendar date.
// (user_id, date) is unique.
type DailyReport struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;uniqueIndex:ux_daily_reports_user_date,priority:1" json:"user_id"`
	Date   time.Time    `gorm:"type:date;not null;index;uniqueIndex:ux_daily_reports_user_date,priority:2" json:"date"`

	ImportedCustomers  *int64 `json:"imported_customers"`
	CertifiedCustomers *int64 `json:"certified_customers"`
	TodayCoverage      *int64 `json:"today_coverage"`
	TodayReplies       *int64 `json:"today_replies"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Owner            *userdomain.User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	PerformanceLines []PerformanceLine `gorm:"foreignKey:DailyReportID;constraint:OnDelete:CASCADE" json:"performance_lines"`
	OpportunityLines []OpportunityLine `gorm:"foreignKey:DailyReportID;constraint:OnDelete:CASCADE" json:"opportunity_lines"`
}

func (DailyReport) TableName() string { return "daily_reports" }

// Gauges returns the stored gauge values.
func (r DailyReport) Gauges() GaugeMetrics {
	return GaugeMetrics{
		ImportedCustomers:  r.ImportedCustomers,
		CertifiedCustomers: r.CertifiedCustomers,
		TodayCoverage:      r.TodayCoverage,
		TodayReplies:       r.TodayReplies,
	}
}

func (r DailyReport) OwnerName() string {
	if r.Owner == nil {
		return ""
	}
	return r.Owner.Name
}

// PerformanceFields are the editable values of a performance line.
type PerformanceFields struct {
	OutsideGold Amount `gorm:"not null;default:0" json:"outside_gold"`
	Demand      Amount `gorm:"not null;default:0" json:"demand"`
	Deposit     Amount `gorm:"not null;default:0" json:"deposit"`
	Wealth      Amount `gorm:"not null;default:0" json:"wealth"`
	Loan        Amount `gorm:"not null;default:0" json:"loan"`
	Gold        Amount `gorm:"not null;default:0" json:"gold"`
	Insurance   Amount `gorm:"not null;default:0" json:"insurance"`
	Fund        Amount `gorm:"not null;default:0" json:"fund"`
	CreditCard  int64  `gorm:"not null;default:0" json:"credit_card"`
	Branch      string `gorm:"type:varchar(128);not null;default:''" json:"branch"`
	Product     string `gorm:"type:varchar(128);not null;default:''" json:"product"`
}

// Amounts lists the eight amount fields in a fixed order.
func (f PerformanceFields) Amounts() [8]Amount {
	return [8]Amount{f.OutsideGold, f.Demand, f.Deposit, f.Wealth, f.Loan, f.Gold, f.Insurance, f.Fund}
}

type PerformanceLine struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	DailyReportID     snowflake.ID `gorm:"not null;index" json:"daily_report_id"`
	PerformanceFields `gorm:"embedded"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
}

func (PerformanceLine) TableName() string { return "performance_lines" }

type OpportunityFields struct {
	Category string `gorm:"type:varchar(128);not null" json:"category"`
	Count    int64  `gorm:"not null;default:0" json:"count"`
}

type OpportunityLine struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	DailyReportID     snowflake.ID `gorm:"not null;index" json:"daily_report_id"`
	OpportunityFields `gorm:"embedded"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
}

func (OpportunityLine) TableName() string { return "opportunity_lines" }

// GaugeMetrics is a partial set of gauges. A nil field means "not supplied".
type GaugeMetrics struct {
	ImportedCustomers  *int64 `json:"imported_customers,omitempty"`
	CertifiedCustomers *int64 `json:"certified_customers,omitempty"`
	TodayCoverage      *int64 `json:"today_coverage,omitempty"`
	TodayReplies       *int64 `json:"today_replies,omitempty"`
}

func (g GaugeMetrics) IsEmpty() bool {
	return g.ImportedCustomers == nil &&
		g.CertifiedCustomers == nil &&
		g.TodayCoverage == nil &&
		g.TodayReplies == nil
}

// Columns maps the supplied gauges to their column names.
func (g GaugeMetrics) Columns() map[string]any {
	cols := map[string]any{}
	if g.ImportedCustomers != nil {
		cols["imported_customers"] = *g.ImportedCustomers
	}
	if g.CertifiedCustomers != nil {
		cols["certified_customers"] = *g.CertifiedCustomers
	}
	if g.TodayCoverage != nil {
		cols["today_coverage"] = *g.TodayCoverage
	}
	if g.TodayReplies != nil {
		cols["today_replies"] = *g.TodayReplies
	}
	return cols
}

// DateRange is an inclusive calendar-date range. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ReportFilter selects reports for listing and rollups.
// A nil OrgID means no tenant restriction.
type ReportFilter struct {
	Range DateRange
	OrgID *snowflake.ID
}

// NormalizeDate truncates t to its calendar date at UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
