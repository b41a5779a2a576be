package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/config"
	"github.com/swdee/go-dlinfer/logger"
	"github.com/swdee/go-dlinfer/pipeline"
	"go.uber.org/zap"
)

// listFlag collects a flag that may be repeated or comma separated
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(v string) error {

	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}

	return nil
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	var modelDirs listFlag

	// read in cli flags
	flag.Var(&modelDirs, "d", "Model bundle directory, repeat or comma separate for multiple models")
	imgFile := flag.String("i", "", "Image file to run inference on")
	alpha := flag.Float64("a", 0, "Alpha value for semantic segmentation mask blending")
	vizThreshold := flag.Float64("vt", 0, "Visualization threshold for object detection and pose estimation")
	topN := flag.Int("tn", 0, "Top N classes to display for classification")
	mode := flag.String("mode", "", "TIDL to run with hardware acceleration, ARM for CPU only")
	outDir := flag.String("o", "", "Directory to save annotated images to")
	configFile := flag.String("config", "", "Optional YAML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	cfg, err := config.Load(*configFile)

	if err != nil {
		log.Fatalf("Error loading configuration: %v\n", err)
	}

	// command line flags take precedence over the configuration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d":
			cfg.Models = modelDirs
		case "i":
			cfg.Image = *imgFile
		case "a":
			cfg.Alpha = *alpha
		case "vt":
			cfg.VizThreshold = *vizThreshold
		case "tn":
			cfg.TopN = *topN
		case "mode":
			cfg.Mode = *mode
		case "o":
			cfg.OutputDir = *outDir
		case "debug":
			cfg.Debug = *debug
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v\n", err)
	}

	if len(cfg.Models) == 0 {
		log.Fatal("No model directories given, use -d")
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

	// a model that fails to load is skipped, the rest still run
	for _, dir := range cfg.Models {
		p, err := reg.Add(dir)

		if err != nil {
			zl.Error("skipping model", zap.String("dir", dir), zap.Error(err))
			continue
		}

		if cfg.Debug {
			p.Config.Dump(os.Stdout)
		}
	}

	if reg.Len() == 0 {
		log.Fatal("No models could be loaded")
	}

	driver, err := pipeline.NewDriver(reg,
		pipeline.WithOutputDir(cfg.OutputDir),
		pipeline.WithDriverLogger(zl),
	)

	if err != nil {
		log.Fatalf("Error creating driver: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := driver.Run(ctx, []string{cfg.Image})

	if err != nil {
		zl.Warn("run interrupted", zap.Error(err))
	}

	failed := false

	for _, res := range results {
		for _, out := range res.Outputs {
			fmt.Printf("Post processed image saved: %s\n", out)
		}

		for _, ferr := range res.Errors {
			fmt.Printf("Model %s failed: %v\n", res.Model, ferr.Err)
			failed = true
		}
	}

	if failed || err != nil {
		reg.Close()
		os.Exit(1)
	}
}
