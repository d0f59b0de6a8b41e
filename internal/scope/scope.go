// Package scope decides which reports a rollup caller may see.
package scope

import (
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/report/domain"
)

// Scope builds the store filter for a rollup or listing request.
//
// Supervisors are restricted to their own organization and fail with
// ErrConfiguration when none is assigned. Admins see every tenant. Any
// other role is ErrUnauthorized. Range bounds are inclusive calendar dates.
func Scope(a actor.Actor, r domain.DateRange) (domain.ReportFilter, error) {
	if a.ID == 0 {
		return domain.ReportFilter{}, domain.ErrUnauthorized
	}

	rng, err := normalizeRange(r)
	if err != nil {
		return domain.ReportFilter{}, err
	}

	switch a.Role {
	case actor.RoleSupervisor:
		if !a.HasOrg() {
			return domain.ReportFilter{}, domain.ErrConfiguration
		}
		orgID := *a.OrgID
		return domain.ReportFilter{Range: rng, OrgID: &orgID}, nil
	case actor.RoleAdmin:
		return domain.ReportFilter{Range: rng}, nil
	default:
		return domain.ReportFilter{}, domain.ErrUnauthorized
	}
}

// Name labels the filter for logs and metrics.
func Name(f domain.ReportFilter) string {
	if f.OrgID == nil {
		return "global"
	}
	return "organization"
}

func normalizeRange(r domain.DateRange) (domain.DateRange, error) {
	if !r.From.IsZero() {
		r.From = domain.NormalizeDate(r.From)
	}
	if !r.To.IsZero() {
		r.To = domain.NormalizeDate(r.To)
	}
	if err := r.Validate(); err != nil {
		return domain.DateRange{}, err
	}
	return r, nil
}
