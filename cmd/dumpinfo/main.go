package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/swdee/go-dlinfer/config"
	"github.com/swdee/go-dlinfer/logger"
	"github.com/swdee/go-dlinfer/model"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelDir := flag.String("m", "", "Model bundle directory")
	mode := flag.String("mode", config.ModeTIDL, "TIDL to load the compiled artifacts, ARM for CPU only")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if *modelDir == "" {
		log.Fatal("Model directory is required, use -m")
	}

	accelerated := strings.EqualFold(*mode, config.ModeTIDL)

	zl := logger.New(*debug)
	defer zl.Sync()

	cfg, err := model.New(*modelDir, accelerated, model.WithLogger(zl))

	if err != nil {
		log.Fatalf("Error loading model: %v\n", err)
	}

	defer cfg.Close()

	cfg.Dump(os.Stdout)

	if err := cfg.Session.Query(os.Stdout); err != nil {
		log.Printf("Error querying model: %v\n", err)
	}
}
