package config

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"crossfold/util"
)

// Architecture is the geometry of the single convolutional stage.
type Architecture struct {
	FilterSize int
	NumFilters int
}

// Randomness names the seed and stream-derivation algorithm used for every
// fold's validation split.
type Randomness struct {
	Seed      int64
	Generator string
}

// Recognized stream-derivation algorithms. "splitmix" gives each fold an
// independent stream; "shared" reseeds every fold identically, which matches
// the behavior of harnesses that reseed one global source per fold.
const (
	GeneratorSplitmix = "splitmix"
	GeneratorShared   = "shared"
)

// Config is the full run configuration.
type Config struct {
	TrainRoot string
	TestRoot  string
	Channels  int
	Engine    string // "torch" or "baseline"

	Training []Option
	Arch     Architecture
	Rand     Randomness
	Log      *util.LogConfig
}

// Load reads a YAML config file. The training section is carried as an
// ordered option list; normalization happens later so unknown keys survive
// loading untouched.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("crossfold")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c := &Config{
		TrainRoot: v.GetString("data.train_root"),
		TestRoot:  v.GetString("data.test_root"),
		Channels:  v.GetInt("data.channels"),
		Engine:    v.GetString("engine"),
		Arch: Architecture{
			FilterSize: v.GetInt("architecture.filter_size"),
			NumFilters: v.GetInt("architecture.num_filters"),
		},
		Rand: Randomness{
			Seed:      v.GetInt64("randomness.seed"),
			Generator: v.GetString("randomness.generator"),
		},
		Log: util.DefaultLogConfig(),
	}

	if v.IsSet("log.path") {
		c.Log.Path = v.GetString("log.path")
	}
	if v.IsSet("log.level") {
		c.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.console") {
		c.Log.Console = v.GetBool("log.console")
	}

	// A YAML mapping has no stable order, so sort keys for reproducible
	// option lists. Later duplicates winning is then well defined.
	raw := v.GetStringMap("training")
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Training = append(c.Training, Option{Key: k, Value: raw[k]})
	}

	return c, nil
}

// Validate checks everything the loader cannot, except the training options,
// which ParseTrainingOptions owns.
func (c *Config) Validate() error {
	if c.TrainRoot == "" || c.TestRoot == "" {
		return errors.New("config: both data.train_root and data.test_root must be set")
	}
	for _, root := range []string{c.TrainRoot, c.TestRoot} {
		if _, err := os.Stat(root); err != nil {
			return errors.Wrapf(err, "config: data root %s", root)
		}
	}
	if c.Channels != 1 && c.Channels != 3 {
		return errors.Errorf("config: data.channels must be 1 or 3 (got %d)", c.Channels)
	}
	if c.Engine != "torch" && c.Engine != "baseline" {
		return errors.Errorf("config: unknown engine %q", c.Engine)
	}
	if c.Arch.FilterSize <= 0 || c.Arch.FilterSize%2 == 0 {
		return errors.Errorf("config: architecture.filter_size must be odd and positive (got %d)", c.Arch.FilterSize)
	}
	if c.Arch.NumFilters <= 0 {
		return errors.Errorf("config: architecture.num_filters must be positive (got %d)", c.Arch.NumFilters)
	}
	return ValidateGenerator(c.Rand.Generator)
}

// ValidateGenerator rejects unknown stream-derivation names up front.
func ValidateGenerator(name string) error {
	switch name {
	case GeneratorSplitmix, GeneratorShared:
		return nil
	default:
		return errors.Errorf("config: unknown randomness.generator %q", name)
	}
}
