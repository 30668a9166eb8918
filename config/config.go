// Package config loads, saves and validates CipherBox client settings.
//
// Configuration lives in a plain key=value file under the data directory.
// Unknown keys are ignored so older binaries tolerate newer files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// configFileName is the name of the config file inside the data directory.
const configFileName = "config"

// Config holds all client settings.
type Config struct {
	// DataDir is the root directory for local state: blob store, pointer
	// cache, share database, vault state file.
	DataDir string

	// NamingEndpoint is the base URL of the naming service.
	NamingEndpoint string

	// GatewayEndpoints lists content gateway base URLs, tried in order.
	// Empty means local-only content resolution.
	GatewayEndpoints []string

	// RepublishEndpoint is the base URL of the republish collaborator.
	// Empty disables keep-alive enrollment.
	RepublishEndpoint string

	// RepublishToken is the bearer credential for the collaborator.
	RepublishToken string

	// DNSServer is the recursive resolver used for DNSSEC-validated
	// dnslink lookups (host:port). Empty falls back to the system resolver
	// without DNSSEC.
	DNSServer string

	// ResolveTimeout bounds one naming service round trip.
	ResolveTimeout time.Duration

	// PublishRetries bounds publish attempts after sequence conflicts.
	PublishRetries int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultDataDir returns the default data directory: ~/.cipherbox, or
// ".cipherbox" relative to the working directory if the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cipherbox"
	}
	return filepath.Join(home, ".cipherbox")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		NamingEndpoint:   "http://127.0.0.1:5001",
		GatewayEndpoints: []string{"http://127.0.0.1:8080"},
		DNSServer:        "8.8.8.8:53",
		ResolveTimeout:   30 * time.Second,
		PublishRetries:   3,
		LogLevel:         "info",
	}
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// LoadConfig reads the config file at path. Missing keys keep their
// defaults; unknown keys are ignored. Returns ErrConfigNotFound if the
// file does not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, i+1, line)
		}

		switch key {
		case "datadir":
			cfg.DataDir = value
		case "naming":
			cfg.NamingEndpoint = value
		case "gateways":
			cfg.GatewayEndpoints = splitList(value)
		case "republish":
			cfg.RepublishEndpoint = value
		case "republishtoken":
			cfg.RepublishToken = value
		case "dnsserver":
			cfg.DNSServer = value
		case "resolvetimeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: bad duration %q", ErrInvalidConfigLine, i+1, value)
			}
			cfg.ResolveTimeout = d
		case "publishretries":
			n, err := strconv.Atoi(value)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: bad integer %q", ErrInvalidConfigLine, i+1, value)
			}
			cfg.PublishRetries = n
		case "loglevel":
			cfg.LogLevel = value
		}
		// Unknown keys are ignored for forward compatibility.
	}

	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# CipherBox Configuration\n\n")
	writeKey(&b, "datadir", cfg.DataDir)
	writeKey(&b, "naming", cfg.NamingEndpoint)
	writeKey(&b, "gateways", strings.Join(cfg.GatewayEndpoints, ","))
	writeKey(&b, "republish", cfg.RepublishEndpoint)
	writeKey(&b, "republishtoken", cfg.RepublishToken)
	writeKey(&b, "dnsserver", cfg.DNSServer)
	writeKey(&b, "resolvetimeout", cfg.ResolveTimeout.String())
	writeKey(&b, "publishretries", strconv.Itoa(cfg.PublishRetries))
	writeKey(&b, "loglevel", cfg.LogLevel)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// parseKeyValue splits a "key = value" line on the first '=' only, so
// values may themselves contain '='.
func parseKeyValue(line string) (key, value string, err error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", fmt.Errorf("missing '='")
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", fmt.Errorf("missing key")
	}
	return key, value, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeKey(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(" = ")
	b.WriteString(value)
	b.WriteString("\n")
}
