package migration

import (
	"github.com/smallbiznis/fieldreport/internal/config"
	"github.com/smallbiznis/fieldreport/internal/seed"
	"github.com/smallbiznis/fieldreport/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		log = log.Named("migration")
		if cfg.RunMigrations {
			if err := Run(conn); err != nil {
				return err
			}
			log.Info("schema up to date", zap.String("dialect", conn.Dialector.Name()))
		}

		if cfg.SeedDemo {
			if err := seed.EnsureDemoData(db.Silent(conn)); err != nil {
				return err
			}
			log.Info("demo organizations and users ensured")
		}
		return nil
	}),
)
