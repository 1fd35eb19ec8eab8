package system

var (
	// Version is the current version of this software, overridden at build time.
	Version = "develop"
)
