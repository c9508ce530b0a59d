package config

import "os"

// ApplyEnvConfig applies configuration from environment variables (TLECAT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("regime", os.Getenv("TLECAT_REGIME"), &cfg.Regime)
	s.setString("start", os.Getenv("TLECAT_START"), &cfg.Start)
	s.setString("end", os.Getenv("TLECAT_END"), &cfg.End)
	s.setString("out-dir", os.Getenv("TLECAT_OUT_DIR"), &cfg.OutDir)
	s.setString("source-url", os.Getenv("TLECAT_SOURCE_URL"), &cfg.SourceURL)
	s.setString("source-file", os.Getenv("TLECAT_SOURCE_FILE"), &cfg.SourceFile)
	s.setString("cache-dir", os.Getenv("TLECAT_CACHE_DIR"), &cfg.CacheDir)
	s.setString("log-level", os.Getenv("TLECAT_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("TLECAT_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("addr", os.Getenv("TLECAT_ADDR"), &cfg.Addr)
	s.setString("run-catalog", os.Getenv("TLECAT_RUN_CATALOG"), &cfg.RunCatalog)
	s.setString("target", os.Getenv("TLECAT_TARGET"), &cfg.Target)

	if err := s.setDuration("timeout", os.Getenv("TLECAT_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("cache-max-files", os.Getenv("TLECAT_CACHE_MAX_FILES"), &cfg.CacheMaxFiles); err != nil {
		return err
	}
	if err := s.setIntFromString("workers", os.Getenv("TLECAT_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", os.Getenv("TLECAT_RETRIES"), &cfg.Retries); err != nil {
		return err
	}

	if err := s.setIntFromString("stream-max-per-ip", os.Getenv("TLECAT_STREAM_MAX_PER_IP"), &cfg.StreamMaxPerIP); err != nil {
		return err
	}

	s.setBoolFromString("trust-proxy", os.Getenv("TLECAT_TRUST_PROXY"), &cfg.TrustProxy)
	s.setBoolFromString("lenient", os.Getenv("TLECAT_LENIENT"), &cfg.Lenient)

	return nil
}
