// Package config loads the application configuration of the dlinfer
// commands from defaults, an optional YAML file and DLINFER_ environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/model"
)

const (
	// ModeTIDL runs models with hardware acceleration
	ModeTIDL = "TIDL"
	// ModeARM runs models on the CPU only
	ModeARM = "ARM"

	// EnvPrefix is the prefix of environment variable overrides
	EnvPrefix = "DLINFER_"
)

// ServerConfig defines the HTTP server configuration
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// AppConfig is the application configuration
type AppConfig struct {
	// Models are the model bundle directories to load
	Models []string `koanf:"models"`
	// Image is the frame to run the models on
	Image string `koanf:"image"`
	// Mode is TIDL or ARM
	Mode         string  `koanf:"mode"`
	Alpha        float64 `koanf:"alpha"`
	VizThreshold float64 `koanf:"vizthreshold"`
	TopN         int     `koanf:"topn"`
	// OutputDir is where annotated frames are written
	OutputDir string `koanf:"outputdir"`
	Debug     bool   `koanf:"debug"`
	// CPUAffinity is an SoC platform name whose application cores the
	// process is pinned to, empty leaves the affinity unchanged
	CPUAffinity string       `koanf:"cpuaffinity"`
	Server      ServerConfig `koanf:"server"`
}

// defaults are the values used when neither the file nor the environment
// set a key
var defaults = map[string]any{
	"image":        "/opt/edge_ai_apps/data/images/0002.jpg",
	"mode":         ModeTIDL,
	"alpha":        model.DefaultAlpha,
	"vizthreshold": 0.6,
	"topn":         model.DefaultTopN,
	"outputdir":    ".",
	"server.addr":  ":8080",
}

// Load reads the configuration.  filePath may be empty to use only the
// defaults and environment
func Load(filePath string) (*AppConfig, error) {

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if filePath != "" {
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration values
func (c *AppConfig) Validate() error {

	c.Mode = strings.ToUpper(strings.TrimSpace(c.Mode))

	if c.Mode != ModeTIDL && c.Mode != ModeARM {
		return fmt.Errorf("%w: unsupported mode %q, use %s or %s",
			dlinfer.ErrConfiguration, c.Mode, ModeTIDL, ModeARM)
	}

	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v must be between 0 and 1", dlinfer.ErrConfiguration, c.Alpha)
	}

	if c.TopN < 0 {
		return fmt.Errorf("%w: topn %d must not be negative", dlinfer.ErrConfiguration, c.TopN)
	}

	if c.CPUAffinity != "" {
		if _, err := dlinfer.PlatformCoreMask(c.CPUAffinity); err != nil {
			return err
		}
	}

	return nil
}

// Accelerated reports whether models run with hardware acceleration
func (c *AppConfig) Accelerated() bool {
	return c.Mode == ModeTIDL
}

// Overrides returns the visualization settings applied to every model
func (c *AppConfig) Overrides() model.Overrides {
	return model.Overrides{
		Alpha:        &c.Alpha,
		VizThreshold: &c.VizThreshold,
		TopN:         &c.TopN,
	}
}
