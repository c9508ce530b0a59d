package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Regime         string `toml:"regime"`
	Start          string `toml:"start"`
	End            string `toml:"end"`
	OutDir         string `toml:"out_dir"`
	SourceURL      string `toml:"source_url"`
	SourceFile     string `toml:"source_file"`
	CacheDir       string `toml:"cache_dir"`
	CacheMaxFiles  int    `toml:"cache_max_files"`
	Workers        int    `toml:"workers"`
	Retries        *int   `toml:"retries"`
	HTTPTimeout    string `toml:"http_timeout"`
	Lenient        *bool  `toml:"lenient"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	Addr           string `toml:"addr"`
	RunCatalog     string `toml:"run_catalog"`
	Target         string `toml:"target"`
	StreamMaxPerIP int    `toml:"stream_max_per_ip"`
	TrustProxy     *bool  `toml:"trust_proxy"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.tlecat/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tlecat", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("regime", fc.Regime, &cfg.Regime)
	s.setString("start", fc.Start, &cfg.Start)
	s.setString("end", fc.End, &cfg.End)
	s.setString("out-dir", fc.OutDir, &cfg.OutDir)
	s.setString("source-url", fc.SourceURL, &cfg.SourceURL)
	s.setString("source-file", fc.SourceFile, &cfg.SourceFile)
	s.setString("cache-dir", fc.CacheDir, &cfg.CacheDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("run-catalog", fc.RunCatalog, &cfg.RunCatalog)
	s.setString("target", fc.Target, &cfg.Target)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("cache-max-files", fc.CacheMaxFiles, &cfg.CacheMaxFiles)
	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setIntPtr("retries", fc.Retries, &cfg.Retries)
	s.setInt("stream-max-per-ip", fc.StreamMaxPerIP, &cfg.StreamMaxPerIP)

	s.setBool("lenient", fc.Lenient, &cfg.Lenient)
	s.setBool("trust-proxy", fc.TrustProxy, &cfg.TrustProxy)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
