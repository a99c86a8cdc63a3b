package basm

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is a module's TOML-loadable configuration (spec.md §4.5
// expansion): heap capacity, call-stack depth cap and trace flag, grounded
// on the chazu-maggie-style layered TOML configuration pattern.
type Config struct {
	HeapSize     int  `toml:"heap_size"`
	MaxCallDepth int  `toml:"max_call_depth"`
	Trace        bool `toml:"trace"`
}

// LoadConfig decodes a Config from a TOML file at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "basm: loading config %s", path)
	}
	return cfg, nil
}

// Options translates cfg into the Option list newModule expects, omitting
// any field left at its zero value so unset config keys keep their
// built-in defaults.
func (cfg Config) Options() []Option {
	var opts []Option
	if cfg.HeapSize > 0 {
		opts = append(opts, WithHeapSize(cfg.HeapSize))
	}
	if cfg.MaxCallDepth > 0 {
		opts = append(opts, WithMaxCallDepth(cfg.MaxCallDepth))
	}
	if cfg.Trace {
		opts = append(opts, WithTrace(true))
	}
	return opts
}
