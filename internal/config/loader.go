package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known STT backend names. Used by [Validate] to
// warn about unrecognised names.
var ValidProviderNames = []string{"whisper-native", "mock"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// STT backends
	if cfg.STT.Provider.Name == "" {
		errs = append(errs, errors.New("stt.provider.name is required"))
	} else {
		errs = append(errs, validateEntry("stt.provider", cfg.STT.Provider)...)
	}
	if cfg.STT.Fallback != nil {
		if cfg.STT.Fallback.Name == "" {
			errs = append(errs, errors.New("stt.fallback.name is required when fallback is set"))
		} else {
			errs = append(errs, validateEntry("stt.fallback", *cfg.STT.Fallback)...)
			if cfg.STT.Fallback.Name == cfg.STT.Provider.Name && cfg.STT.Fallback.Model == cfg.STT.Provider.Model {
				slog.Warn("stt.fallback is identical to stt.provider; the fallback will fail the same way")
			}
		}
	}

	return errors.Join(errs...)
}

// validateEntry checks a single backend entry and warns about unknown names.
func validateEntry(prefix string, entry ProviderEntry) []error {
	var errs []error

	if !slices.Contains(ValidProviderNames, entry.Name) {
		slog.Warn("unknown backend name, may be a typo",
			"field", prefix,
			"name", entry.Name,
			"known", ValidProviderNames,
		)
	}
	if entry.Name == "whisper-native" && entry.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required for whisper-native (path to a GGML model file)", prefix))
	}
	if entry.Threads < 0 {
		errs = append(errs, fmt.Errorf("%s.threads %d is negative", prefix, entry.Threads))
	}
	return errs
}
