package types

import "errors"

// Config holds backend selection and parameters for opening the entity store.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// BusyRetries bounds how many times Open retries while another process
	// holds the database lock. Zero selects the default.
	BusyRetries int `json:"busy_retries,omitempty" yaml:"busy_retries,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultBusyRetries is used when Config.BusyRetries is zero.
const DefaultBusyRetries = 5

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrBusyRetriesInvalid = errors.New("busy retries must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.BusyRetries < 0 {
		return ErrBusyRetriesInvalid
	}
	return nil
}

// GetBusyRetries returns the effective retry bound.
func (c Config) GetBusyRetries() int {
	if c.BusyRetries == 0 {
		return DefaultBusyRetries
	}
	return c.BusyRetries
}
