package config

import (
	"os"
	"path/filepath"

	"github.com/apex/log"
)

// SystemConfiguration defines basic system configuration settings.
type SystemConfiguration struct {
	// The root directory where all sonlib data is stored.
	RootDirectory string `default:"/var/lib/sonlib" yaml:"root_directory"`

	// Directory where sonlib event logs are stored.
	LogDirectory string `default:"/var/log/sonlib" yaml:"log_directory"`

	// Directory where saved input archives are written.
	ArchiveDirectory string `default:"/var/lib/sonlib/archives" yaml:"archive_directory"`
}

// ScratchConfiguration configures the temporary file tree managed by this
// instance.
type ScratchConfiguration struct {
	// Directory the temporary file tree is rooted at. When left empty the
	// tree lives under the system root directory.
	Directory string `yaml:"directory"`

	// The branching factor of the tree: how many entries a single directory
	// may hold before the allocator moves on.
	FilesPerDirectory int `default:"500" yaml:"files_per_directory"`

	// How many directory levels deep the tree goes. Total capacity is
	// files_per_directory^levels.
	Levels int `default:"3" yaml:"levels"`

	// When enabled, allocate and destroy operations are journaled to a local
	// sqlite database under the system root directory.
	ActivityJournal bool `default:"true" yaml:"activity_journal"`
}

// ScratchPath returns the scratch tree root, falling back to a directory
// inside the system root when not configured explicitly.
func (c *Configuration) ScratchPath() string {
	if c.Scratch.Directory != "" {
		return c.Scratch.Directory
	}
	return filepath.Join(c.System.RootDirectory, "scratch")
}

// ConfigureDirectories ensures that all the system directories exist on the
// system. These directories are created so that only the owner can read the
// data, and no other users.
func (sc *SystemConfiguration) ConfigureDirectories() error {
	log.WithField("path", sc.RootDirectory).Debug("ensuring root data directory exists")
	if err := os.MkdirAll(sc.RootDirectory, 0o700); err != nil {
		return err
	}

	log.WithField("path", sc.LogDirectory).Debug("ensuring log directory exists")
	if err := os.MkdirAll(sc.LogDirectory, 0o700); err != nil {
		return err
	}

	log.WithField("path", sc.ArchiveDirectory).Debug("ensuring archive directory exists")
	if err := os.MkdirAll(sc.ArchiveDirectory, 0o700); err != nil {
		return err
	}

	return nil
}
