package authorization

import (
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

const (
	ObjectDailyReport = "daily_report"
	ObjectReportLine  = "report_line"
	ObjectStatistics  = "statistics"
	ObjectManager     = "manager"
)

const (
	ActionReportSubmit  = "daily_report.submit"
	ActionReportViewOwn = "daily_report.view_own"
	ActionReportDelete  = "daily_report.delete"
	ActionLineUpdate    = "report_line.update"
	ActionLineDelete    = "report_line.delete"

	ActionStatisticsView = "statistics.view"
	ActionReportList     = "daily_report.list"
	ActionManagerList    = "manager.list"
)

var (
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

// Service answers capability questions for an actor's role.
type Service interface {
	Can(a actor.Actor, object, action string) (bool, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an in-memory enforcer holding the built-in role policies.
func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Can(a actor.Actor, object, action string) (bool, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}
	if a.ID == 0 || a.Role == "" {
		return false, nil
	}

	allowed, err := s.enforcer.Enforce(subject(a.Role), object, action)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.String("actor_id", a.ID.String()),
			zap.String("role", string(a.Role)),
			zap.String("object", object),
			zap.String("action", action),
		)
	}
	return allowed, nil
}

func subject(role actor.Role) string {
	return "role:" + strings.ToLower(string(role))
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Reporters own their daily reports.
		{subject(actor.RoleReporter), ObjectDailyReport, ActionReportSubmit},
		{subject(actor.RoleReporter), ObjectDailyReport, ActionReportViewOwn},
		{subject(actor.RoleReporter), ObjectDailyReport, ActionReportDelete},
		{subject(actor.RoleReporter), ObjectReportLine, ActionLineUpdate},
		{subject(actor.RoleReporter), ObjectReportLine, ActionLineDelete},

		// Supervisors read rollups of their organization.
		{subject(actor.RoleSupervisor), ObjectStatistics, ActionStatisticsView},
		{subject(actor.RoleSupervisor), ObjectDailyReport, ActionReportList},
		{subject(actor.RoleSupervisor), ObjectManager, ActionManagerList},
	}
	if _, err := enforcer.AddPolicies(policies); err != nil {
		return err
	}

	// Admins inherit supervisor capabilities; tenant scope is widened elsewhere.
	_, err := enforcer.AddGroupingPolicy(subject(actor.RoleAdmin), subject(actor.RoleSupervisor))
	return err
}
