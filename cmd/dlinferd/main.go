package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/config"
	"github.com/swdee/go-dlinfer/logger"
	"github.com/swdee/go-dlinfer/pipeline"
	"github.com/swdee/go-dlinfer/server"
	"go.uber.org/zap"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	configFile := flag.String("config", "", "Optional YAML configuration file")

	flag.Parse()

	cfg, err := config.Load(*configFile)

	if err != nil {
		log.Fatalf("Error loading configuration: %v\n", err)
	}

	zl := logger.New(cfg.Debug)
	defer zl.Sync()

	if cfg.CPUAffinity != "" {
		if err := dlinfer.SetCPUAffinityByPlatform(cfg.CPUAffinity); err != nil {
			zl.Warn("failed to set cpu affinity", zap.String("platform", cfg.CPUAffinity),
				zap.Error(err))
		}
	}

	reg := pipeline.NewRegistry(cfg.Accelerated(),
		pipeline.WithOverrides(cfg.Overrides()),
		pipeline.WithLogger(zl),
	)

	defer reg.Close()

	for _, dir := range cfg.Models {
		if _, err := reg.Add(dir); err != nil {
			zl.Error("skipping model", zap.String("dir", dir), zap.Error(err))
		}
	}

	if reg.Len() == 0 {
		zl.Warn("no models loaded, only health checks will succeed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(reg, zl).Run(ctx, cfg.Server.Addr); err != nil {
		zl.Error("http server failed", zap.Error(err))
		reg.Close()
		os.Exit(1)
	}
}
