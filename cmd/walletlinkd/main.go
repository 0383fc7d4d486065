// Package main provides the walletlinkd daemon - the wallet linking session
// behind the swap widget, served over JSON-RPC and WebSocket.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/config"
	"github.com/klingon-exchange/walletlink/internal/link"
	"github.com/klingon-exchange/walletlink/internal/rpc"
	"github.com/klingon-exchange/walletlink/internal/wallet"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// passwordEnv names the environment variable holding the seed password.
const passwordEnv = "WALLETLINK_PASSWORD"

func main() {
	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.walletlink", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		wallets     = flag.String("wallets", "", "Wallet families to connect at startup (comma-separated: evm,bitcoin,solana)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      firstNonEmpty(*logLevel, "info"),
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("walletlinkd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Load or create config file
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = config.LoadConfig(*dataDir)
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	if *apiAddr != "" {
		cfg.RPC.ListenAddr = *apiAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err)
	}

	// Update logging with config level and output
	output, closeLog, err := logOutput(cfg.Logging.File)
	if err != nil {
		log.Fatal("Failed to open log file", "path", cfg.Logging.File, "error", err)
	}
	defer closeLog()
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
		Output:     output,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.ConfigPath(cfg.DataDir))

	// Variables already set in the environment take precedence over .env
	if err := godotenv.Load(cfg.EnvFilePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load .env file", "path", cfg.EnvFilePath(), "error", err)
	}

	// Open the local wallet provider
	password := os.Getenv(passwordEnv)
	if password == "" {
		log.Fatal("Seed password not set", "env", passwordEnv)
	}
	keyring, created, err := wallet.OpenOrCreateKeyring(cfg.SeedFilePath(), password)
	if err != nil {
		log.Fatal("Failed to open keyring", "path", cfg.SeedFilePath(), "error", err)
	}
	if created {
		log.Warn("Created a new wallet seed", "path", cfg.SeedFilePath())
	}

	manager := wallet.NewManager(wallet.ManagerConfig{
		Keyring:        keyring,
		EVMEndpoints:   cfg.Endpoints.EVM,
		SolanaEndpoint: cfg.Endpoints.Solana,
	})

	// The WebSocket hub is the UI the session drives
	hub := rpc.NewWSHub()
	go hub.Run()

	session := link.NewSession(link.Config{
		Poller: link.PollerConfig{
			MaxAttempts: cfg.Poller.MaxAttempts,
			Interval:    cfg.Poller.Interval,
		},
		SolanaChainID: cfg.Chains.SolanaChainID,
	}, hub, manager)
	manager.SetListener(session)

	for _, name := range parseList(*wallets) {
		family, ok := chain.ParseFamily(name)
		if !ok {
			log.Fatal("Unknown wallet family", "family", name)
		}
		w, err := manager.Add(family)
		if err != nil {
			log.Fatal("Failed to connect wallet", "family", family, "error", err)
		}
		log.Info("Wallet connected", "family", family, "address", w.Address())
	}

	// Start RPC server
	rpcServer := rpc.NewServer(session, manager, hub)
	if err := rpcServer.Start(cfg.RPC.ListenAddr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	printBanner(log, cfg, len(manager.Wallets()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}
	session.Close()
	hub.Stop()
	keyring.ClearCache()

	log.Info("Goodbye!")
}

// logOutput opens the configured log file, or returns stderr.
func logOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func printBanner(log *logging.Logger, cfg *config.Config, walletCount int) {
	addr := cfg.RPC.ListenAddr

	log.Info("")
	log.Info("=================================================")
	log.Info("  walletlink daemon")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", addr)
	log.Infof("  WS:  ws://%s/ws", addr)
	log.Info("")
	log.Infof("  Wallets: %d | Switch poller: %d x %s", walletCount, cfg.Poller.MaxAttempts, cfg.Poller.Interval)
	log.Infof("  Data dir: %s", cfg.DataPath())
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: walletlinkd [flags]\n\nThe seed password is read from $%s or <data-dir>/.env.\n\n", passwordEnv)
		flag.PrintDefaults()
	}
}
