// srpwebd is the SRP-6a login service daemon: it serves the WebSocket
// authentication endpoint and the session API over HTTP(S).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marspr/srp-web/internal/auth"
	"github.com/marspr/srp-web/internal/config"
	"github.com/marspr/srp-web/internal/logging"
	"github.com/marspr/srp-web/internal/server"
)

var (
	// version is set by build flags
	version = "dev"
	// commit is set by build flags
	commit = "none"
)

func main() {
	configPath := flag.String("config", "/etc/srpweb/config.yaml", "path to configuration file")
	addUser := flag.String("add-user", "", "enroll a user into the store and exit (reads the password from stdin)")
	flag.Parse()

	logger := logging.New(logging.LevelInfo, logging.FormatJSON)

	if err := run(*configPath, *addUser, logger); err != nil {
		logger.Error("service failed", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func run(configPath, addUser string, logger *logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = logging.New(parseLogLevel(cfg.Logging.Level), parseLogFormat(cfg.Logging.Format))
	for _, key := range cfg.Logging.RedactKeys {
		logger.Redactor().AddSensitiveKey(key)
	}

	srpCfg, err := cfg.SRPConfig()
	if err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	exchangeTimeout, err := cfg.GetExchangeTimeout()
	if err != nil {
		return err
	}
	sessionTTL, err := cfg.GetSessionTTL()
	if err != nil {
		return err
	}

	users, err := auth.NewUserStore(cfg.Users.File, srpCfg.Group)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}

	if addUser != "" {
		return enrollLocal(users, srpCfg, addUser)
	}

	logger.Info("srpwebd starting", map[string]any{
		"version":                version,
		"commit":                 commit,
		"listen_address":         fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		"tls":                    cfg.TLSEnabled(),
		"group":                  srpCfg.Group.Name,
		"hash":                   srpCfg.Hash.String(),
		"wire_encoding":          codec.Encoding.String(),
		"enumeration_resistance": cfg.EnumerationResistance(),
		"rate_limiting":          cfg.RateLimiting(),
		"exchange_timeout":       exchangeTimeout.String(),
		"session_ttl":            sessionTTL.String(),
		"enrolled_users":         users.Count(),
	})

	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(secret, sessionTTL, 0)
	defer sessions.Stop()

	exchanges := auth.NewExchangeRegistry(cfg.Limits.MaxExchanges, exchangeTimeout)
	defer exchanges.Stop()

	var limiter *auth.RateLimiter
	if cfg.RateLimiting() {
		limiter = auth.NewRateLimiter()
		defer limiter.Stop()
	}

	srv, err := server.New(cfg, logger, server.Deps{
		Users:           users,
		Sessions:        sessions,
		Exchanges:       exchanges,
		Limiter:         limiter,
		SRPConfig:       srpCfg,
		Codec:           codec,
		ExchangeTimeout: exchangeTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("srpwebd stopped")
	return nil
}


func parseLogLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseLogFormat(format string) logging.LogFormat {
	switch format {
	case "json":
		return logging.FormatJSON
	case "human":
		return logging.FormatHuman
	default:
		return logging.FormatJSON
	}
}
