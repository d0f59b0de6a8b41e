package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldreport/internal/clock"
	"github.com/smallbiznis/fieldreport/internal/config"
	"github.com/smallbiznis/fieldreport/internal/migration"
	"github.com/smallbiznis/fieldreport/internal/observability"
	"github.com/smallbiznis/fieldreport/internal/server"
	"github.com/smallbiznis/fieldreport/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id node. NODE_ID must differ between
// replicas sharing a database.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
