package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrezinsky/gaterace/internal/app"
	"github.com/abrezinsky/gaterace/internal/config"
	"github.com/abrezinsky/gaterace/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	logLevel := flag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `GateRace - gate-start race scoring and brackets

Usage:
  gaterace [options]

Options:
  -port int      HTTP server port (default from PORT, 8081)
  -db string     SQLite database path (default from DB_PATH, "gaterace.db")
  -loglevel str  Log level: debug, info, warn, error (default from LOG_LEVEL)
  -nokeyboard    Disable keyboard shortcuts
  -version       Show version and exit
  -help          Show this help message

Settings are read from a .env file and the environment; flags win.

Keyboard Shortcuts (when enabled):
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  s              Show connected live screens
  q              Quit server
  ?              Show keyboard help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("gaterace %s\n", version)
		os.Exit(0)
	}

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.LogLevel = *logLevel

	appLog := logger.NewWithWriter(os.Stdout, logger.ParseLevel(cfg.LogLevel), logger.ParseFormat(cfg.LogFormat))
	defer appLog.Sync()
	if cfg.HTTPLogging {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, cfg)
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noKeyboard {
		printKeyboardHelp()
		go listenForKeyboard(ctx, stop, a.Hub(), appLog)
	}

	if err := a.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		appLog.Error("Server stopped", "error", err)
		// os.Exit skips deferred calls
		a.Close()
		appLog.Sync()
		os.Exit(1)
	}
}
