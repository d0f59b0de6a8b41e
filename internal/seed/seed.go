package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/actor"
	organizationdomain "github.com/smallbiznis/fieldreport/internal/organization/domain"
	userdomain "github.com/smallbiznis/fieldreport/internal/user/domain"
	"gorm.io/gorm"
)

type demoOrg struct {
	name      string
	reporters []string
}

var demoOrgs = []demoOrg{
	{name: "North Branch Group", reporters: []string{"Chen Li", "Wang Fang"}},
	{name: "South Branch Group", reporters: []string{"Zhao Min", "Liu Yang"}},
}

const demoAdminUsername = "admin"

// EnsureDemoData seeds demo organizations with one supervisor and a few
// reporters each, plus a global admin. Existing rows are left untouched.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		if _, err := ensureUserTx(ctx, tx, node, demoAdminUsername, "Administrator", actor.RoleAdmin, nil, now); err != nil {
			return err
		}

		for _, spec := range demoOrgs {
			org, err := ensureOrgTx(ctx, tx, node, spec.name, now)
			if err != nil {
				return err
			}
			orgID := org.ID

			supervisor := fmt.Sprintf("%s-supervisor", org.Code)
			if _, err := ensureUserTx(ctx, tx, node, supervisor, spec.name+" Supervisor", actor.RoleSupervisor, &orgID, now); err != nil {
				return err
			}
			for _, name := range spec.reporters {
				username := organizationdomain.CodeFromName(name)
				if _, err := ensureUserTx(ctx, tx, node, username, name, actor.RoleReporter, &orgID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func ensureOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string, now time.Time) (*organizationdomain.Organization, error) {
	code := organizationdomain.CodeFromName(name)

	var org organizationdomain.Organization
	err := tx.WithContext(ctx).
		Where("code = ?", code).
		First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	org = organizationdomain.Organization{
		ID:        node.Generate(),
		Name:      name,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, username, name string, role actor.Role, orgID *snowflake.ID, now time.Time) (*userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = userdomain.User{
		ID:             node.Generate(),
		Name:           name,
		Username:       username,
		Role:           role,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
