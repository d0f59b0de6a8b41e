package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	// ListReporters returns reporters ordered by name. A nil orgID lists all tenants.
	ListReporters(ctx context.Context, db *gorm.DB, orgID *snowflake.ID) ([]ReporterSummary, error)
}
