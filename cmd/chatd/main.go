package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tberthier/lanchat/pkg/audit"
	"github.com/tberthier/lanchat/pkg/credential"
	"github.com/tberthier/lanchat/pkg/datastore"
	"github.com/tberthier/lanchat/pkg/logging"
	"github.com/tberthier/lanchat/pkg/server"
	"github.com/tberthier/lanchat/pkg/version"
)

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Optional .env file for LAN deployments; missing file is fine.
	_ = godotenv.Load()

	cfg := server.DefaultConfig()
	cfg.Addr = envOr("LANCHAT_ADDR", cfg.Addr)
	cfg.DBPath = envOr("LANCHAT_DB", cfg.DBPath)
	cfg.MetricsAddr = envOr("LANCHAT_METRICS_ADDR", cfg.MetricsAddr)

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP bind address for the chat relay")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file path")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.BoolVar(&cfg.ExportUsers, "export-users", false, "Export all users as YAML and exit")

	configFile := flag.String("config", "", "YAML config file (flags override)")
	noAudit := flag.Bool("no-audit", false, "Disable the database audit log")
	logLevel := flag.String("log-level", envOr("LANCHAT_LOG_LEVEL", "info"), "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", envOr("LANCHAT_LOG_FORMAT", "text"), "Log format: text or json")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	if *configFile != "" {
		fc, err := server.LoadConfigFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid config file: %v\n", err)
			os.Exit(1)
		}
		cfg = fc.Apply(cfg)
		if fc.LogLevel != "" {
			*logLevel = fc.LogLevel
		}
		if fc.LogFormat != "" {
			*logFormat = fc.LogFormat
		}
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	db, err := datastore.NewSQL(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Handle export command (run and exit)
	if cfg.ExportUsers {
		data, err := server.ExportUsersYAML(db)
		if err != nil {
			slog.Error("export users", "err", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	creds := credential.NewStore(db)
	if password, err := creds.EnsureAdmin(); err != nil {
		slog.Error("seed admin account", "err", err)
		os.Exit(1)
	} else if password != "" {
		slog.Info("========================================")
		slog.Info("ADMIN PASSWORD (save this!):", "user", credential.AdminUsername, "password", password)
		slog.Info("========================================")
	}

	var sink audit.Sink = audit.NewRecorder(db)
	if *noAudit {
		sink = audit.Nop{}
	}

	srv := server.New(cfg, server.Dependencies{
		Creds: creds,
		Audit: sink,
	})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
