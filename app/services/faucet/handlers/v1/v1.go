// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/statelessnet/faucet/app/services/faucet/handlers/v1/accountgrp"
	"github.com/statelessnet/faucet/business/core/provision"
	"github.com/statelessnet/faucet/foundation/events"
	"github.com/statelessnet/faucet/foundation/ledger"
	"github.com/statelessnet/faucet/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log           *zap.SugaredLogger
	Provision     *provision.Core
	Evts          *events.Events
	BaseAccountID ledger.AccountID
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	agh := accountgrp.Handlers{
		Log:           cfg.Log,
		Provision:     cfg.Provision,
		Evts:          cfg.Evts,
		BaseAccountID: cfg.BaseAccountID,
	}

	app.Handle(http.MethodPost, version, "/account/create", agh.Create)
	app.Handle(http.MethodGet, version, "/events", agh.Events)
}
