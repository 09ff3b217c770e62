// Package accountgrp maintains the group of handlers for account
// provisioning.
package accountgrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/statelessnet/faucet/business/core/provision"
	"github.com/statelessnet/faucet/business/web/errs"
	"github.com/statelessnet/faucet/foundation/events"
	"github.com/statelessnet/faucet/foundation/ledger"
	"github.com/statelessnet/faucet/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of account endpoints.
type Handlers struct {
	Log           *zap.SugaredLogger
	Provision     *provision.Core
	Evts          *events.Events
	WS            websocket.Upgrader
	BaseAccountID ledger.AccountID
}

// Create provisions a new funded account on the ledger.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app appNewAccount
	if err := web.Decode(r, &app); err != nil {
		return err
	}
	app = app.normalize(h.BaseAccountID)

	h.Log.Infow("create account", "traceid", v.TraceID, "account", app.AccountID, "key", app.PublicKey)

	account, err := h.Provision.Create(ctx, provision.NewAccount{
		AccountID: app.AccountID,
		PublicKey: app.PublicKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, provision.ErrValidation):
			return errs.NewTrusted(err, http.StatusBadRequest)

		case errors.Is(err, provision.ErrRetriesExhausted):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)

		default:
			return err
		}
	}

	return web.Respond(ctx, w, toAppAccount(account.AccountID, account.PublicKey), http.StatusCreated)
}

// Events handles a web socket to provide provisioning events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
