package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; backend changes
// require a restart and are reported via RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RecordingChanged bool
	NewRecording     RecordingConfig

	// RestartRequired is true when a non-reloadable field changed (listen
	// address, TLS, or any STT backend setting).
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Recording != new.Recording {
		d.RecordingChanged = true
		d.NewRecording = new.Recording
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!sttEqual(old.STT, new.STT) {
		d.RestartRequired = true
	}

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sttEqual(a, b STTConfig) bool {
	if !entryEqual(a.Provider, b.Provider) {
		return false
	}
	if a.Fallback == nil || b.Fallback == nil {
		return a.Fallback == b.Fallback
	}
	return entryEqual(*a.Fallback, *b.Fallback)
}

// entryEqual compares entries ignoring the free-form Options map only when
// both are empty; any populated Options map is treated as changed since deep
// comparison of arbitrary YAML values is not worth the trouble here.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.Model != b.Model || a.Language != b.Language || a.Threads != b.Threads {
		return false
	}
	return len(a.Options) == 0 && len(b.Options) == 0
}
