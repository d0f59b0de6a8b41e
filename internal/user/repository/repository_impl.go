package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) ListReporters(ctx context.Context, db *gorm.DB, orgID *snowflake.ID) ([]domain.ReporterSummary, error) {
	var rows []domain.ReporterSummary
	stmt := db.WithContext(ctx).
		Table("users").
		Select("users.id, users.name, users.username, COUNT(daily_reports.id) AS report_count").
		Joins("LEFT JOIN daily_reports ON daily_reports.user_id = users.id").
		Where("users.role = ?", actor.RoleReporter)
	if orgID != nil {
		stmt = stmt.Where("users.organization_id = ?", *orgID)
	}
	err := stmt.
		Group("users.id, users.name, users.username").
		Order("users.name asc, users.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
