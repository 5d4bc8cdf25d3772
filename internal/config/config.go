package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the contents of loxvm.yaml / loxvm.toml.
type Config struct {
	Log LogConfig `yaml:"log" toml:"log"`
	VM  VMConfig  `yaml:"vm" toml:"vm"`
}

type LogConfig struct {
	// Level is a logrus level name: trace, debug, info, warning, error.
	Level string `yaml:"level" toml:"level"`
	// JSON switches the formatter from text to JSON.
	JSON bool `yaml:"json" toml:"json"`
}

// VMConfig tunes the compiler, VM and collector.
type VMConfig struct {
	FramesMax          int     `yaml:"frames_max" toml:"frames_max"`
	GCInitialThreshold int     `yaml:"gc_initial_threshold" toml:"gc_initial_threshold"`
	GCGrowFactor       float64 `yaml:"gc_grow_factor" toml:"gc_grow_factor"`

	// StressGC collects on every allocation.
	StressGC bool `yaml:"stress_gc" toml:"stress_gc"`
	// LogGC logs every collection (and every freed object at trace level).
	LogGC bool `yaml:"log_gc" toml:"log_gc"`
	// LogDisassembly logs the listing of each function as it finishes compiling.
	LogDisassembly bool `yaml:"log_disassembly" toml:"log_disassembly"`
	// TraceExecution logs the stack and instruction before each step.
	TraceExecution bool `yaml:"trace_execution" toml:"trace_execution"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// StackMax is the value stack size implied by the frame limit.
func (c VMConfig) StackMax() int {
	return c.FramesMax * FrameSlots
}

// LoadConfig reads and parses a config file. The format follows the extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content from bytes.
// The path argument selects the format and is used in error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format", path)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories.
// Returns the path and nil error if found, or empty string and nil error if not.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	if c.VM.FramesMax < 0 {
		return fmt.Errorf("%s: vm.frames_max must not be negative, got %d", path, c.VM.FramesMax)
	}
	if c.VM.GCInitialThreshold < 0 {
		return fmt.Errorf("%s: vm.gc_initial_threshold must not be negative, got %d", path, c.VM.GCInitialThreshold)
	}
	if c.VM.GCGrowFactor != 0 && c.VM.GCGrowFactor < 1 {
		return fmt.Errorf("%s: vm.gc_grow_factor must be at least 1, got %g", path, c.VM.GCGrowFactor)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%s: log.level: %w", path, err)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.VM.FramesMax == 0 {
		c.VM.FramesMax = DefaultFramesMax
	}
	if c.VM.GCInitialThreshold == 0 {
		c.VM.GCInitialThreshold = DefaultGCInitialThreshold
	}
	if c.VM.GCGrowFactor == 0 {
		c.VM.GCGrowFactor = DefaultGCGrowFactor
	}
}

// ApplyLogging configures the standard logrus logger from c.
func (c *Config) ApplyLogging() {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
	if c.Log.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}
