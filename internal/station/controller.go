// Package station provides the bootstrap pipeline for the catalog station.
package station

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/api/rest"
	"github.com/JonasSouza871/rfid-catalog/internal/config"
	"github.com/JonasSouza871/rfid-catalog/internal/console"
	"github.com/JonasSouza871/rfid-catalog/internal/flash"
	"github.com/JonasSouza871/rfid-catalog/internal/history"
	"github.com/JonasSouza871/rfid-catalog/internal/reader"
	"github.com/JonasSouza871/rfid-catalog/internal/workflow"
)

// Controller bootstraps the station, wires all components, and runs until
// shutdown.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewController creates a Controller.
func NewController(cfg *config.Config, logger *zap.Logger) *Controller {
	return &Controller{cfg: cfg, logger: logger}
}

// Run bootstraps all components and blocks until SIGINT/SIGTERM.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- 1. Flash-backed catalog ---
	dev, err := flash.NewFileDevice(c.cfg.Flash.Path)
	if err != nil {
		return fmt.Errorf("flash device: %w", err)
	}
	store := flash.NewStore(dev, c.logger)
	cat, err := store.Load()
	if err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	// --- 2. Card reader ---
	var rdr reader.Reader
	var sim *reader.Sim
	switch c.cfg.Reader.Mode {
	case "sim":
		sim = reader.NewSim()
		rdr = sim
		c.logger.Info("using simulated reader; taps via POST /api/simulate-tap")
	default:
		return fmt.Errorf("unknown reader mode: %s", c.cfg.Reader.Mode)
	}

	// --- 3. History log ---
	hist := history.NewLog(c.cfg.History.Path, c.logger)
	if err := hist.Init(); err != nil {
		return fmt.Errorf("history init: %w", err)
	}
	defer hist.Close()

	// --- 4. Workflow service ---
	svc := workflow.NewService(cat, store, rdr, hist, c.cfg.Poll.Interval, c.logger)

	// --- 5. Shared poll loop ---
	go c.runPollLoop(ctx, svc)

	// --- 6. REST API ---
	srv := rest.New(svc, hist, sim, c.logger)
	go func() {
		if err := srv.Start(c.cfg.HTTP.Addr); err != nil {
			c.logger.Error("REST server stopped", zap.Error(err))
			cancel()
		}
	}()

	// --- 7. Operator console ---
	if c.cfg.Console.Enabled {
		cons := console.New(svc, os.Stdin, os.Stdout, c.cfg.Console.CardTimeout, c.logger)
		go func() {
			if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("console exited", zap.Error(err))
			}
			c.logger.Info("console closed")
		}()
	}

	c.logger.Info("station running",
		zap.String("http", c.cfg.HTTP.Addr),
		zap.Int("items", svc.Count()),
	)

	// --- 8. Wait for shutdown signal ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		c.logger.Info("shutdown signal received")
	case <-ctx.Done():
		c.logger.Info("context cancelled")
	}

	return nil
}

// runPollLoop services the pending network operation: one reader attempt per
// tick, matching the original firmware's idle loop cadence.
func (c *Controller) runPollLoop(ctx context.Context, svc *workflow.Service) {
	interval := c.cfg.Poll.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Poll(ctx)
		}
	}
}
