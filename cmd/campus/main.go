package main

import (
	"github.com/smallbiznis/campus/internal/async"
	"github.com/smallbiznis/campus/internal/clock"
	"github.com/smallbiznis/campus/internal/config"
	"github.com/smallbiznis/campus/internal/migration"
	"github.com/smallbiznis/campus/internal/observability"
	"github.com/smallbiznis/campus/internal/server"
	"github.com/smallbiznis/campus/pkg/db"
	"github.com/smallbiznis/campus/pkg/id"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		id.Module,
		async.Module,
		migration.Module,

		// HTTP surface plus every feature module behind it
		server.Module,
	)
	app.Run()
}
