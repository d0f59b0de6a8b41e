// Package rollup folds daily reports into per-manager statistics, grand
// totals and the branch-first sales view.
package rollup

import (
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	"github.com/smallbiznis/fieldreport/internal/statistics/domain"
)

const DefaultUnassignedBranchLabel = "未指定支行"

type Options struct {
	// UnassignedBranchLabel groups lines without a branch in the
	// branch-first view. Per-manager breakdowns skip those lines.
	UnassignedBranchLabel string
}

func (o Options) unassignedLabel() string {
	label := strings.TrimSpace(o.UnassignedBranchLabel)
	if label == "" {
		return DefaultUnassignedBranchLabel
	}
	return label
}

type managerAcc struct {
	stat        domain.ManagerStatistic
	branchIndex map[string]int
}

type branchAcc struct {
	stat         domain.BranchStatistic
	managerIndex map[snowflake.ID]int
}

// Compute builds the rollup. Reports may arrive in any order; they are
// visited by ascending date so later non-null gauges win.
func Compute(reports []reportdomain.DailyReport, opts Options) domain.Rollup {
	ordered := sortByDate(reports)

	managers, managerOrder := accumulateManagers(ordered)

	result := domain.Rollup{
		ReportCount: len(ordered),
		Managers:    make([]domain.ManagerStatistic, 0, len(managerOrder)),
		BranchSales: BranchSales(ordered, opts),
	}
	for _, id := range managerOrder {
		result.Managers = append(result.Managers, managers[id].stat)
	}
	result.Totals = Totals(result.Managers)
	return result
}

// Totals sums every manager. The two latest-wins gauges take the maximum
// across managers.
func Totals(managers []domain.ManagerStatistic) domain.Totals {
	totals := domain.Totals{Opportunities: map[string]int64{}}
	for _, m := range managers {
		if m.ImportedCustomers > totals.ImportedCustomers {
			totals.ImportedCustomers = m.ImportedCustomers
		}
		if m.CertifiedCustomers > totals.CertifiedCustomers {
			totals.CertifiedCustomers = m.CertifiedCustomers
		}
		totals.TodayCoverage += m.TodayCoverage
		totals.TodayReplies += m.TodayReplies
		totals.Metrics.Add(m.Metrics)
		for category, count := range m.Opportunities {
			totals.Opportunities[category] += count
		}
	}
	return totals
}

// BranchSales groups performance lines by branch, then by manager. Both
// levels keep first-seen order over date-ascending reports.
func BranchSales(reports []reportdomain.DailyReport, opts Options) []domain.BranchStatistic {
	ordered := sortByDate(reports)
	unassigned := opts.unassignedLabel()

	index := map[string]*branchAcc{}
	var order []string
	for _, report := range ordered {
		for _, line := range report.PerformanceLines {
			branch := strings.TrimSpace(line.Branch)
			if branch == "" {
				branch = unassigned
			}

			acc, ok := index[branch]
			if !ok {
				acc = &branchAcc{
					stat:         domain.BranchStatistic{Branch: branch},
					managerIndex: map[snowflake.ID]int{},
				}
				index[branch] = acc
				order = append(order, branch)
			}

			// Keyed by id; two managers may share a display name.
			pos, ok := acc.managerIndex[report.UserID]
			if !ok {
				pos = len(acc.stat.Managers)
				acc.managerIndex[report.UserID] = pos
				acc.stat.Managers = append(acc.stat.Managers, domain.ManagerBranchMetrics{
					ManagerID:   report.UserID,
					ManagerName: report.OwnerName(),
				})
			}
			acc.stat.Managers[pos].AddLine(line.PerformanceFields)
		}
	}

	out := make([]domain.BranchStatistic, 0, len(order))
	for _, branch := range order {
		out = append(out, index[branch].stat)
	}
	return out
}

func accumulateManagers(ordered []reportdomain.DailyReport) (map[snowflake.ID]*managerAcc, []snowflake.ID) {
	managers := map[snowflake.ID]*managerAcc{}
	var order []snowflake.ID

	for _, report := range ordered {
		acc, ok := managers[report.UserID]
		if !ok {
			acc = &managerAcc{
				stat: domain.ManagerStatistic{
					ManagerID:     report.UserID,
					ManagerName:   report.OwnerName(),
					Opportunities: map[string]int64{},
					Branches:      []domain.BranchMetrics{},
				},
				branchIndex: map[string]int{},
			}
			managers[report.UserID] = acc
			order = append(order, report.UserID)
		}
		acc.add(report)
	}
	return managers, order
}

func (acc *managerAcc) add(report reportdomain.DailyReport) {
	stat := &acc.stat
	stat.ReportCount++

	if report.ImportedCustomers != nil {
		stat.ImportedCustomers = *report.ImportedCustomers
	}
	if report.CertifiedCustomers != nil {
		stat.CertifiedCustomers = *report.CertifiedCustomers
	}
	if report.TodayCoverage != nil {
		stat.TodayCoverage += *report.TodayCoverage
	}
	if report.TodayReplies != nil {
		stat.TodayReplies += *report.TodayReplies
	}

	for _, line := range report.PerformanceLines {
		stat.AddLine(line.PerformanceFields)

		branch := strings.TrimSpace(line.Branch)
		if branch == "" {
			continue
		}
		pos, ok := acc.branchIndex[branch]
		if !ok {
			pos = len(stat.Branches)
			acc.branchIndex[branch] = pos
			stat.Branches = append(stat.Branches, domain.BranchMetrics{Branch: branch})
		}
		stat.Branches[pos].AddLine(line.PerformanceFields)
	}

	for _, line := range report.OpportunityLines {
		stat.Opportunities[line.Category] += line.Count
	}
}

func sortByDate(reports []reportdomain.DailyReport) []reportdomain.DailyReport {
	ordered := make([]reportdomain.DailyReport, len(reports))
	copy(ordered, reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})
	return ordered
}
