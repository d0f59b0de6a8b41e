package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/actor"
)

type User struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"type:varchar(128);not null" json:"name"`
	Username       string        `gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username" json:"username"`
	Role           actor.Role    `gorm:"type:varchar(32);not null" json:"role"`
	OrganizationID *snowflake.ID `gorm:"index" json:"organization_id,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Actor converts the stored user into the identity passed to services.
// The stored role is normalized; an unknown role yields an empty one,
// which every check rejects.
func (u User) Actor() actor.Actor {
	role, _ := actor.ParseRole(string(u.Role))
	a := actor.Actor{ID: u.ID, Name: u.Name, Role: role}
	if u.OrganizationID != nil && *u.OrganizationID != 0 {
		org := *u.OrganizationID
		a.OrgID = &org
	}
	return a
}

// ReporterSummary is a reporter with the number of reports they own.
type ReporterSummary struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Username    string       `json:"username"`
	ReportCount int64        `json:"report_count"`
}
