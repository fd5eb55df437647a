package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/strbench/internal/xdg"
)

const (
	AppName        = "strbench"
	MaxSearchPaths = 32

	selectedFile    = "selected"
	testRecordsFile = "tested.tsv"
)

var ErrTooManyPaths = errors.New("too many search paths")

type PublishConfig struct {
	NatsURL     string `toml:"nats_url,omitempty"`
	NatsSubject string `toml:"nats_subject,omitempty"`
	SqsQueueURL string `toml:"sqs_queue_url,omitempty"`
	AwsRegion   string `toml:"aws_region,omitempty"`
}

// RunDefaults are used for run flags that were not given.
type RunDefaults struct {
	Runs        int     `toml:"runs"`
	TimeLimitMs float64 `toml:"time_limit_ms"`
	Size        int     `toml:"size"`
	Pin         string  `toml:"pin"`
	Counters    string  `toml:"counters"`
	Precision   int     `toml:"precision"`
}

type Config struct {
	ResultsDir string              `toml:"results_dir"`
	StateDir   string              `toml:"state_dir"`
	CacheDir   string              `toml:"cache_dir"`
	AlgoPaths  []string            `toml:"algo_paths"`
	DataPaths  []string            `toml:"data_paths"`
	Run        RunDefaults         `toml:"run"`
	Sets       map[string][]string `toml:"sets"`
	Publish    PublishConfig       `toml:"publish"`

	source string
}

func defaults(dirs *xdg.Dirs) *Config {
	return &Config{
		ResultsDir: filepath.Join(dirs.DataDir(), "results"),
		StateDir:   dirs.StateDir(),
		CacheDir:   dirs.CacheDir(),
		AlgoPaths:  []string{"algos", filepath.Join(dirs.DataDir(), "algos")},
		DataPaths:  []string{"data", filepath.Join(dirs.DataDir(), "data")},
		Run: RunDefaults{
			Runs:        500,
			TimeLimitMs: 300,
			Size:        1 << 20,
			Pin:         "last",
			Counters:    "none",
			Precision:   2,
		},
		Sets: map[string][]string{},
		Publish: PublishConfig{
			NatsSubject: "strbench.events",
			AwsRegion:   "eu-central-1",
		},
	}
}

// Load reads .env, then the config file, then applies STRBENCH_*
// environment overrides. A missing config file means defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadWith(os.Getenv)
}

// LoadWith is Load without .env handling, reading variables from getenv.
func LoadWith(getenv func(string) string) (*Config, error) {
	dirs := xdg.New(AppName, getenv)
	cfg := defaults(dirs)

	path := getenv("STRBENCH_CONFIG")
	explicit := path != ""
	if !explicit {
		path, _ = dirs.FindConfig("config.toml")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			cfg.source = path
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if v := getenv("STRBENCH_RESULTS"); v != "" {
		cfg.ResultsDir = v
	}
	if v := getenv("STRBENCH_ALGOS"); v != "" {
		cfg.AlgoPaths = splitPaths(v)
	}
	if v := getenv("STRBENCH_DATA"); v != "" {
		cfg.DataPaths = splitPaths(v)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitPaths(v string) []string {
	var res []string
	for _, p := range strings.Split(v, ":") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

func (c *Config) validate() error {
	if len(c.AlgoPaths) > MaxSearchPaths {
		return fmt.Errorf("%w: %d algorithm paths, limit is %d", ErrTooManyPaths, len(c.AlgoPaths), MaxSearchPaths)
	}
	if len(c.DataPaths) > MaxSearchPaths {
		return fmt.Errorf("%w: %d data paths, limit is %d", ErrTooManyPaths, len(c.DataPaths), MaxSearchPaths)
	}
	if c.Run.Runs < 1 {
		return fmt.Errorf("config run.runs must be positive, got %d", c.Run.Runs)
	}
	if c.Run.TimeLimitMs < 0 {
		return fmt.Errorf("config run.time_limit_ms must not be negative")
	}
	for name := range c.Sets {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config has a set with an empty name")
		}
	}
	return nil
}

// Source is the config file that was read, or "" for defaults.
func (c *Config) Source() string { return c.source }

func (c *Config) SelectedPath() string { return filepath.Join(c.StateDir, selectedFile) }

func (c *Config) TestRecordsPath() string { return filepath.Join(c.StateDir, testRecordsFile) }

// Set returns the algorithm names of a named set.
func (c *Config) Set(name string) ([]string, bool) {
	for k, v := range c.Sets {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
