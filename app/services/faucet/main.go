package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/statelessnet/faucet/app/services/faucet/handlers"
	"github.com/statelessnet/faucet/business/core/provision"
	"github.com/statelessnet/faucet/foundation/events"
	"github.com/statelessnet/faucet/foundation/keystore"
	"github.com/statelessnet/faucet/foundation/ledger"
	"github.com/statelessnet/faucet/foundation/ledger/blockref"
	"github.com/statelessnet/faucet/foundation/ledger/nonce"
	"github.com/statelessnet/faucet/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("FAUCET")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:120s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			AssetsFolder    string        `conf:"default:app/services/faucet/assets"`
		}
		Ledger struct {
			RPCURL          string        `conf:"default:http://localhost:3030"`
			RequestTimeout  time.Duration `conf:"default:30s"`
			RefreshInterval time.Duration `conf:"default:30s"`
		}
		Faucet struct {
			KeysFolder    string `conf:"default:zarf/keys/"`
			BaseAccount   string `conf:"default:faucet"`
			FundingAmount uint64 `conf:"default:100000000"`
			MaxAttempts   int    `conf:"default:10"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "FAUCET"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Signing Identity Support

	// Load the private key file for the base account. Every provisioning
	// transaction is authorized by this one identity.
	ks, err := keystore.New(cfg.Faucet.KeysFolder)
	if err != nil {
		return fmt.Errorf("unable to load keystore: %w", err)
	}

	privateKey, err := ks.PrivateKey(cfg.Faucet.BaseAccount)
	if err != nil {
		return fmt.Errorf("unable to load base account key: %w", err)
	}

	identity, err := ledger.NewIdentity(cfg.Faucet.BaseAccount, privateKey)
	if err != nil {
		return fmt.Errorf("unable to construct signing identity: %w", err)
	}

	log.Infow("startup", "status", "signing identity loaded", "account", identity.AccountID, "key", identity.PublicKey)

	// =========================================================================
	// Ledger Support

	client := ledger.NewClient(cfg.Ledger.RPCURL, cfg.Ledger.RequestTimeout)

	// The event handler gives the foundation packages a way to log. The raw
	// messages are also sent to any websocket client connected into the
	// system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send("faucet.internal", "", "%s", s)
	}

	// Seed the nonce allocator from the ledger's current view of the base
	// account's access key. The service must not take traffic before this
	// succeeds.
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), cfg.Ledger.RequestTimeout)
	defer cancelSeed()

	seed, err := client.AccessKeyNonce(seedCtx, identity.AccountID, identity.PublicKey)
	if err != nil {
		return fmt.Errorf("unable to seed nonce allocator: %w", err)
	}
	nonces := nonce.New(seed, ev)

	log.Infow("startup", "status", "nonce allocator seeded", "nonce", seed)

	// Prime the block reference cache with a synchronous fetch and start
	// the background refresh. Failing the first fetch fails the startup.
	primeCtx, cancelPrime := context.WithTimeout(context.Background(), cfg.Ledger.RequestTimeout)
	defer cancelPrime()

	blockRefs, err := blockref.New(primeCtx, blockref.Config{
		Fetcher:   client,
		Interval:  cfg.Ledger.RefreshInterval,
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("unable to prime block reference cache: %w", err)
	}
	defer blockRefs.Shutdown()

	log.Infow("startup", "status", "block reference cache primed", "blockref", blockRefs.Read())

	// =========================================================================
	// Provisioning Core Support

	core := provision.NewCore(provision.Config{
		Log:           log,
		Submitter:     client,
		Nonces:        nonces,
		BlockRefs:     blockRefs,
		Evts:          evts,
		Identity:      identity,
		FundingAmount: cfg.Faucet.FundingAmount,
		MaxAttempts:   cfg.Faucet.MaxAttempts,
	})

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API calls.
	apiMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:      shutdown,
		Log:           log,
		Provision:     core,
		Evts:          evts,
		BaseAccountID: identity.AccountID,
		AssetsFolder:  cfg.Web.AssetsFolder,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown api started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}
