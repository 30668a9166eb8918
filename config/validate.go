package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if err := validateEndpoint(cfg.NamingEndpoint); err != nil {
		return fmt.Errorf("%w: naming: %w", ErrInvalidEndpoint, err)
	}
	for _, gw := range cfg.GatewayEndpoints {
		if err := validateEndpoint(gw); err != nil {
			return fmt.Errorf("%w: gateway %q: %w", ErrInvalidEndpoint, gw, err)
		}
	}
	if cfg.RepublishEndpoint != "" {
		if err := validateEndpoint(cfg.RepublishEndpoint); err != nil {
			return fmt.Errorf("%w: republish: %w", ErrInvalidEndpoint, err)
		}
	}

	if cfg.DNSServer != "" {
		if _, _, err := net.SplitHostPort(cfg.DNSServer); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDNSServer, err)
		}
	}

	if cfg.ResolveTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if cfg.PublishRetries < 1 {
		return ErrInvalidRetries
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateEndpoint checks that raw is an absolute http(s) URL.
func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
