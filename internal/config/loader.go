package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath returns the user configuration file path
// (~/.config/devbar/config.toml), or "" if the home directory is unknown.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "devbar", "config.toml")
	}
	return ""
}

// Load resolves the configuration from defaults, the TOML file at path and
// the environment, then validates it.
//
// A missing file at path is not an error unless required is true.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Decode(path, data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
			if required {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses TOML data into cfg. Keys already set in cfg keep their
// value unless the document overrides them. Unknown keys are rejected.
func Decode(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			perr.Message = serr.String()
		}
		return perr
	}
	return nil
}
