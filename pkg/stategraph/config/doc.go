/*
Package config loads runtime configuration for stategraph tools.

# Overview

Config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches by returning default values. Keys may be
dotted paths into nested sections:

	cfg, err := config.FromFile("stategraph.yaml")
	if err != nil {
	    return err
	}
	dsn := cfg.String("store.dsn", "")
	timeout := cfg.Duration("run.timeout", time.Minute)

Duration accepts duration strings ("30s") or numbers of seconds. Int accepts
floats only when they carry no fraction.

# Settings

Settings is the typed view used by the CLI. Precedence, lowest first:
DefaultSettings, the config file, STATEGRAPH_* environment variables, and
finally command-line flags.

	s := config.SettingsFrom(cfg)
	s, err = s.ApplyEnv(os.LookupEnv)
	if err := s.Validate(); err != nil {
	    return err
	}

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
