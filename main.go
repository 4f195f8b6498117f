package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielhkuo/devote/cache"
	"github.com/danielhkuo/devote/chain"
	"github.com/danielhkuo/devote/cliparse"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/events"
	"github.com/danielhkuo/devote/middleware"
	"github.com/danielhkuo/devote/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to the audit store
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(ctx, dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	stewards := db.NewStewardRepository(dbConn)
	for _, s := range cfg.Stewards {
		if err := stewards.Upsert(ctx, s); err != nil {
			slog.Error("steward registration failed", "steward", s.ID, "error", err)
			os.Exit(1)
		}
	}
	if len(cfg.Stewards) > 0 {
		slog.Info("Stewards registered", "count", len(cfg.Stewards))
	}

	deps := router.Deps{DB: dbConn}

	// Ledger access
	if cfg.RPCURL != "" {
		eth, err := chain.DialEth(ctx, cfg.RPCURL, cfg.SignerKey, chain.Timeouts{
			Signature:    cfg.SignatureTimeout,
			Confirmation: cfg.ConfirmationTimeout,
		}, nil)
		if err != nil {
			slog.Error("ledger connection failed", "rpc", cfg.RPCURL, "error", err)
			os.Exit(1)
		}
		defer eth.Close()
		deps.Provider, deps.Reader = eth, eth
		slog.Info("Ledger connected", "rpc", cfg.RPCURL, "contract", cfg.LedgerContract)
	} else {
		mem, err := chain.NewDevProvider(cfg.NetworkID, cfg.SignerKey)
		if err != nil {
			slog.Error("dev ledger setup failed", "error", err)
			os.Exit(1)
		}
		accounts, _ := mem.RequestAccounts(ctx)
		deps.Provider, deps.Reader = mem, mem
		slog.Warn("No RPC URL configured; using the in-process ledger", "account", accounts[0])
	}

	// Read cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "devote:")
		if err != nil {
			slog.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		deps.Cache = rc
	} else {
		deps.Cache = cache.NewMemory()
	}

	// Event stream
	if len(cfg.KafkaBrokers) > 0 {
		stream := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer stream.Close()
		deps.Stream = stream
		slog.Info("Publishing events", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}

	// Create router
	mux := router.NewRouter(deps, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
