package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/clock"
	"github.com/smallbiznis/propera/internal/config"
	"github.com/smallbiznis/propera/internal/logger"
	"github.com/smallbiznis/propera/internal/migration"
	"github.com/smallbiznis/propera/internal/server"
	"github.com/smallbiznis/propera/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
