package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/replay"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/server"
)

// ServeCmd runs the websocket server from an HCL config file. Flags
// override file values.
type ServeCmd struct {
	Config    string `kong:"short='c',help='Path to HCL config file'"`
	Addr      string `kong:"help='Listen address (overrides config)'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config)'"`
	ReplayDir string `kong:"help='Directory for finished hand replays (empty keeps them in memory)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadServeConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.Server.LogLevel)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	recorderOpts := replay.Options{Logger: logger}
	if c.ReplayDir != "" {
		if err := os.MkdirAll(c.ReplayDir, 0o755); err != nil {
			return fmt.Errorf("replay dir: %w", err)
		}
		recorderOpts.Store = replay.NewFileStore(c.ReplayDir)
	}
	recorder := replay.NewRecorder(recorderOpts)

	ctrl := controller.New(controller.Options{
		Logger:   logger,
		Recorder: recorder,
	})
	for _, t := range cfg.Tables {
		if err := ctrl.CreateGame(t.Name, t.GameConfig(), ""); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
		logger.Info("table ready", "table", t.Name,
			"blinds", fmt.Sprintf("%d/%d", t.GameConfig().SmallBlind, t.GameConfig().BigBlind))
	}

	go logQuarantines(logger, ctrl)

	srv := server.New(server.Options{
		Addr:       cfg.Server.Address,
		Logger:     logger,
		Controller: ctrl,
		Validator:  cfg.Validator(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func loadServeConfig(path string) (*server.Config, error) {
	if path == "" {
		return server.DefaultConfig(), nil
	}
	return server.LoadConfig(path)
}

// logQuarantines surfaces frozen tables to the operator log.
func logQuarantines(logger *log.Logger, ctrl *controller.Controller) {
	for notice := range ctrl.Operator() {
		logger.Error("table quarantined", "table", notice.GameID, "reason", notice.Reason)
	}
}
