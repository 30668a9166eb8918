package config

import "errors"

var (
	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidEndpoint indicates a service URL is malformed or uses an
	// unsupported scheme.
	ErrInvalidEndpoint = errors.New("config: invalid endpoint URL")

	// ErrInvalidDNSServer indicates the DNS server address is not host:port.
	ErrInvalidDNSServer = errors.New("config: invalid dns server address")

	// ErrInvalidTimeout indicates a non-positive resolve timeout.
	ErrInvalidTimeout = errors.New("config: resolve timeout must be positive")

	// ErrInvalidRetries indicates a publish retry bound below one.
	ErrInvalidRetries = errors.New("config: publish retries must be at least 1")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
