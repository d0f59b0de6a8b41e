// Package domain contains persistence models for tenant organizations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
)

// Organization is a tenant. Supervisors see reports of its members only.
type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(128);not null" json:"name"`
	Code      string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_organizations_code" json:"code"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// CodeFromName derives the stable organization code used as a natural key.
func CodeFromName(name string) string {
	return slug.Make(name)
}
