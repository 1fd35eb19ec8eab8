package config

import (
	"os"
	"path/filepath"
	"sync"

	"emperror.dev/errors"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"
)

// DefaultLocation is the default location where sonlib expects its
// configuration file to live.
const DefaultLocation = "/etc/sonlib/config.yml"

var (
	mu sync.RWMutex

	_config *Configuration

	// _debugViaFlag tracks if the application is running in debug mode because
	// of a command line flag argument. If so we do not want to store that in
	// the configuration file.
	_debugViaFlag bool
)

type Configuration struct {
	// The location from which this configuration instance was loaded. Not
	// written back out to the file.
	path string

	// Determines if sonlib should be running in debug mode. This value is
	// ignored if the debug flag is passed through the command line arguments.
	Debug bool `default:"false" yaml:"debug"`

	System  SystemConfiguration  `yaml:"system"`
	Scratch ScratchConfiguration `yaml:"scratch"`
}

// NewAtPath creates a new struct and set the path where it should be stored.
// This function does not modify the currently stored global configuration.
func NewAtPath(path string) (*Configuration, error) {
	var c Configuration
	// Configures the default values for many of the configuration options
	// present in the structs. If these values are set in the configuration
	// file they will be overridden.
	if err := defaults.Set(&c); err != nil {
		return nil, errors.WithStack(err)
	}
	c.path = path
	return &c, nil
}

// Set the global configuration instance.
func Set(c *Configuration) {
	mu.Lock()
	_config = c
	mu.Unlock()
}

// SetDebugViaFlag tracks if the application is running in debug mode because
// of a command line flag argument.
func SetDebugViaFlag(d bool) {
	mu.Lock()
	_config.Debug = _config.Debug || d
	_debugViaFlag = d
	mu.Unlock()
}

// Get returns the global configuration instance. This is a shallow copy of
// the struct, so modifications will not persist; use Update for that.
func Get() *Configuration {
	mu.RLock()
	c := *_config
	mu.RUnlock()
	return &c
}

// Update performs an in-situ update of the global configuration object using
// a thread-safe mutex lock.
func Update(callback func(c *Configuration)) {
	mu.Lock()
	callback(_config)
	mu.Unlock()
}

// Debug returns true when the application is running in debug mode.
func Debug() bool {
	mu.RLock()
	d := _config.Debug
	mu.RUnlock()
	return d
}

// GetPath returns the path of the file this configuration was loaded from.
func (c *Configuration) GetPath() string {
	return c.path
}

// FromFile reads the configuration from the provided file and stores it in
// the global singleton for this instance.
func FromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	c, err := NewAtPath(path)
	if err != nil {
		return err
	}

	// Replace environment variables within the configuration file with their
	// values from the host system.
	b = []byte(os.ExpandEnv(string(b)))

	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.WithStack(err)
	}

	Set(c)
	return nil
}

// WriteToDisk writes the configuration to the disk as a blocking operation.
func WriteToDisk(c *Configuration) error {
	// Avoid writing the debug state into the file when it was only enabled by
	// a command line flag for this run.
	ccopy := *c
	if _debugViaFlag {
		ccopy.Debug = false
	}
	if c.path == "" {
		return errors.New("config: attempting to write to disk without a path")
	}
	b, err := yaml.Marshal(&ccopy)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	if err := os.WriteFile(c.path, b, 0o600); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
