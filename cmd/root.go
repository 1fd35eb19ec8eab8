package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	"github.com/apex/log/handlers/multi"
	"github.com/mitchellh/colorstring"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/config"
	"github.com/cvaske/sonLib/loggers/cli"
	"github.com/cvaske/sonLib/system"
)

var (
	profiler    = ""
	configPath  = config.DefaultLocation
	debug       = false
	showVersion = false
)

var root = &cobra.Command{
	Use:   "sonlib",
	Short: "Scratch space and sequence file tooling for bioinformatic pipelines",
	Long:  ``,
	Run: func(cmd *cobra.Command, _ []string) {
		if showVersion {
			fmt.Println(system.Version)
			os.Exit(0)
		}
		printLogo()
		_ = cmd.Help()
	},
}

func init() {
	root.PersistentFlags().BoolVar(&showVersion, "version", false, "show the version and exit")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultLocation, "set the location for the configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "pass in order to run sonlib in debug mode")
	root.PersistentFlags().StringVar(&profiler, "profiler", "", "the profiler to run for this invocation")

	root.AddCommand(versionCmd)
	root.AddCommand(configureCmd)
	root.AddCommand(diagnosticsCmd)
	root.AddCommand(scratchCmd)
	root.AddCommand(treeCmd)
	root.AddCommand(fastaCmd)
}

// Execute runs the CLI, exiting the process on error.
func Execute() {
	if err := root.Execute(); err != nil {
		log.WithField("error", err).Fatal("failed to execute command")
	}
}

// initConfig loads the configuration file and applies the global flags on
// top of it. Commands that operate on a scratch tree call this before doing
// anything else.
func initConfig() {
	p := configPath
	if !strings.HasPrefix(p, "/") {
		d, err := os.Getwd()
		if err != nil {
			log.WithField("error", err).Fatal("failed to determine working directory")
		}
		p = path.Clean(path.Join(d, configPath))
	}

	if err := config.FromFile(p); err != nil {
		if errors.Is(err, os.ErrNotExist) && configPath == config.DefaultLocation {
			exitWithConfigurationNotice()
		}
		log.WithField("error", err).WithField("path", p).Fatal("failed to load configuration")
	}
	config.SetDebugViaFlag(debug)
}

// initLogging configures the global logger to write to both the terminal and
// a rotated log file inside the configured log directory.
func initLogging() {
	c := config.Get()
	if err := os.MkdirAll(c.System.LogDirectory, 0o700); err != nil {
		log.WithField("error", err).Fatal("failed to create log directory")
	}

	p := filepath.Join(c.System.LogDirectory, "sonlib.log")
	w, err := logrotate.NewFile(p)
	if err != nil {
		panic(errors.WithMessage(err, "cmd: failed to open process log file"))
	}

	if config.Debug() {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	log.SetHandler(multi.New(
		cli.Default,
		cli.New(w.File, false),
	))

	log.WithField("path", p).Debug("writing log files to disk")
}

// startProfiler starts the requested profiler and returns a function that
// stops it. A no-op is returned when no profiler was requested.
func startProfiler() func() {
	var p interface{ Stop() }
	switch profiler {
	case "":
		return func() {}
	case "cpu":
		p = profile.Start(profile.CPUProfile)
	case "mem":
		p = profile.Start(profile.MemProfile)
	case "alloc":
		p = profile.Start(profile.MemProfile, profile.MemProfileAllocs)
	case "heap":
		p = profile.Start(profile.MemProfile, profile.MemProfileHeap)
	case "routines":
		p = profile.Start(profile.GoroutineProfile)
	case "mutex":
		p = profile.Start(profile.MutexProfile)
	case "block":
		p = profile.Start(profile.BlockProfile)
	default:
		log.WithField("profiler", profiler).Fatal("unknown profiler requested")
	}
	return p.Stop
}

func printLogo() {
	fmt.Printf(colorstring.Color(`
                    __   _ __
   ___ ___  ___    / /  (_) /
  (_-</ _ \/ _ \  / /__/ / _ \
 /___/\___/_//_/ /____/_/_.__/ [bold]v%s[reset]

A toolkit for scratch file trees and common sequence file formats.%s`), system.Version, "\n\n")
}

func exitWithConfigurationNotice() {
	fmt.Print(colorstring.Color(`
[_red_][white][bold]Error: Configuration File Not Found[reset]

sonlib was not able to locate your configuration file, and therefore is not
able to complete its boot process. Run the interactive setup:

    sonlib configure

or point at an existing file with the --config flag.
`))
	os.Exit(1)
}
