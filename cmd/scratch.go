package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/apex/log"
	"github.com/gammazero/workerpool"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cvaske/sonLib/config"
	"github.com/cvaske/sonLib/internal/archive"
	"github.com/cvaske/sonLib/internal/database"
	"github.com/cvaske/sonLib/internal/models"
	"github.com/cvaske/sonLib/scratch"
)

var scratchCmd = &cobra.Command{
	Use:   "scratch",
	Short: "Manage the scratch file tree.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		initConfig()
		initLogging()
	},
}

var scratchAllocArgs struct {
	Dir    bool
	Suffix string
	Count  int
}

var scratchAllocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Allocate scratch files or directories and print their paths.",
	Run:   scratchAllocRun,
}

var scratchLsArgs struct {
	JSON bool
	Long bool
}

var scratchLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List every live entry in the scratch tree.",
	Run:   scratchLsRun,
}

var scratchRmArgs struct {
	Dir bool
}

var scratchRmCmd = &cobra.Command{
	Use:   "rm path...",
	Short: "Release scratch entries back to the tree.",
	Args:  cobra.MinimumNArgs(1),
	Run:   scratchRmRun,
}

var scratchWipeArgs struct {
	Yes bool
}

var scratchWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Destroy the entire scratch tree.",
	Run:   scratchWipeRun,
}

var scratchSaveCmd = &cobra.Command{
	Use:   "save name path...",
	Short: "Archive files and directories into the configured archive directory.",
	Long:  "Archives the given inputs, typically those of a failed pipeline run, into a tar.gz under the archive directory for later inspection.",
	Args:  cobra.MinimumNArgs(2),
	Run:   scratchSaveRun,
}

var scratchRestoreCmd = &cobra.Command{
	Use:   "restore archive dir",
	Short: "Extract a saved archive into a directory.",
	Args:  cobra.ExactArgs(2),
	Run:   scratchRestoreRun,
}

func init() {
	scratchAllocCmd.Flags().BoolVar(&scratchAllocArgs.Dir, "dir", false, "allocate directories instead of files")
	scratchAllocCmd.Flags().StringVar(&scratchAllocArgs.Suffix, "suffix", "", "suffix appended to allocated file names")
	scratchAllocCmd.Flags().IntVarP(&scratchAllocArgs.Count, "count", "n", 1, "number of entries to allocate")

	scratchLsCmd.Flags().BoolVar(&scratchLsArgs.JSON, "json", false, "emit the listing as JSON")
	scratchLsCmd.Flags().BoolVar(&scratchLsArgs.Long, "long", false, "include size, mode and mimetype for each entry")

	scratchRmCmd.Flags().BoolVar(&scratchRmArgs.Dir, "dir", false, "the paths are directories")

	scratchWipeCmd.Flags().BoolVar(&scratchWipeArgs.Yes, "yes", false, "skip the confirmation prompt")

	scratchCmd.AddCommand(scratchAllocCmd)
	scratchCmd.AddCommand(scratchLsCmd)
	scratchCmd.AddCommand(scratchRmCmd)
	scratchCmd.AddCommand(scratchWipeCmd)
	scratchCmd.AddCommand(scratchSaveCmd)
	scratchCmd.AddCommand(scratchRestoreCmd)
}

// openTree opens the configured scratch tree, creating it if this is the
// first use.
func openTree() *scratch.Tree {
	c := config.Get()
	if err := c.System.ConfigureDirectories(); err != nil {
		log.WithField("error", err).Fatal("failed to create system directories")
	}
	t, err := scratch.New(c.ScratchPath(), c.Scratch.FilesPerDirectory, c.Scratch.Levels)
	if err != nil {
		log.WithField("error", err).Fatal("failed to open scratch tree")
	}
	return t
}

var (
	journalOnce sync.Once
	journalErr  error
)

// openJournal initializes the activity database exactly once per process.
func openJournal() error {
	journalOnce.Do(func() {
		journalErr = database.Initialize()
	})
	return journalErr
}

// journal records an activity event when the journal is enabled in the
// configuration. Failures are logged and otherwise ignored; the journal is
// an audit trail, not a dependency of the operation itself.
func journal(root string, event models.Event, path string, meta models.ActivityMeta) {
	if !config.Get().Scratch.ActivityJournal {
		return
	}
	if err := openJournal(); err != nil {
		log.WithField("error", err).Warn("failed to open activity journal")
		return
	}
	a := models.Activity{Root: root, Event: event, Path: path, Metadata: meta}
	if tx := database.Instance().Create(&a); tx.Error != nil {
		log.WithField("error", tx.Error).Warn("failed to record activity event")
	}
}

func scratchAllocRun(cmd *cobra.Command, _ []string) {
	t := openTree()
	for i := 0; i < scratchAllocArgs.Count; i++ {
		p, err := t.Allocate(scratchAllocArgs.Dir, scratchAllocArgs.Suffix)
		if err != nil {
			if scratch.IsErrorCode(err, scratch.ErrCodeCapacityExhausted) {
				log.WithField("capacity", t.Capacity()).Fatal("scratch tree is full")
			}
			log.WithField("error", err).Fatal("failed to allocate scratch entry")
		}
		journal(t.Path(), models.ActivityAllocate, p, models.ActivityMeta{"dir": scratchAllocArgs.Dir})
		fmt.Println(p)
	}
}

type lsEntry struct {
	Path string        `json:"path"`
	Stat *scratch.Stat `json:"stat,omitempty"`
}

func scratchLsRun(cmd *cobra.Command, _ []string) {
	t := openTree()
	paths, err := t.ListAll()
	if err != nil {
		log.WithField("error", err).Fatal("failed to list scratch tree")
	}

	entries := make([]lsEntry, len(paths))
	for i, p := range paths {
		entries[i] = lsEntry{Path: p}
	}

	if scratchLsArgs.Long {
		// Stat calls hit the disk and, for files, sniff the mimetype,
		// so spread them over a small pool.
		pool := workerpool.New(4)
		for i := range entries {
			i := i
			pool.Submit(func() {
				s, err := t.Stat(entries[i].Path)
				if err != nil {
					log.WithField("path", entries[i].Path).WithField("error", err).Warn("failed to stat entry")
					return
				}
				entries[i].Stat = s
			})
		}
		pool.StopWait()
	}

	if scratchLsArgs.JSON {
		out, err := json.Marshal(entries)
		if err != nil {
			log.WithField("error", err).Fatal("failed to encode listing")
		}
		fmt.Println(string(out))
		return
	}

	for _, e := range entries {
		if e.Stat != nil {
			fmt.Printf("%s\t%d\t%s\t%s\n", e.Stat.Info.Mode(), e.Stat.Info.Size(), e.Stat.Mimetype, e.Path)
		} else {
			fmt.Println(e.Path)
		}
	}
}

func scratchRmRun(cmd *cobra.Command, args []string) {
	t := openTree()
	failed := false
	for _, p := range args {
		if !filepath.IsAbs(p) {
			if wd, err := os.Getwd(); err == nil {
				p = filepath.Join(wd, p)
			}
		}
		if err := t.Destroy(p, scratchRmArgs.Dir); err != nil {
			log.WithField("path", p).WithField("error", err).Error("failed to destroy scratch entry")
			failed = true
			continue
		}
		journal(t.Path(), models.ActivityDestroy, p, models.ActivityMeta{"dir": scratchRmArgs.Dir})
	}
	if failed {
		os.Exit(1)
	}
}

func scratchWipeRun(cmd *cobra.Command, _ []string) {
	t := openTree()
	if !scratchWipeArgs.Yes {
		survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("Destroy the scratch tree at %s and everything in it?", t.Path()),
		}, &scratchWipeArgs.Yes)
		if !scratchWipeArgs.Yes {
			fmt.Println("Aborting.")
			os.Exit(1)
		}
	}
	if err := t.DestroyAll(); err != nil {
		log.WithField("error", err).Fatal("failed to destroy scratch tree")
	}
	journal(t.Path(), models.ActivityDestroyAll, t.Path(), nil)
	log.WithField("path", t.Path()).Info("scratch tree destroyed")
}

func scratchSaveRun(cmd *cobra.Command, args []string) {
	defer startProfiler()()
	if err := config.Get().System.ConfigureDirectories(); err != nil {
		log.WithField("error", err).Fatal("failed to create system directories")
	}

	name, inputs := args[0], args[1:]
	for i, p := range inputs {
		if !filepath.IsAbs(p) {
			wd, err := os.Getwd()
			if err != nil {
				log.WithField("error", err).Fatal("failed to determine working directory")
			}
			inputs[i] = filepath.Join(wd, p)
		}
	}

	// Fail before writing anything if any input is missing.
	var g errgroup.Group
	for _, p := range inputs {
		p := p
		g.Go(func() error {
			if _, err := os.Stat(p); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithField("error", err).Fatal("refusing to save, input is not readable")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dst := filepath.Join(config.Get().System.ArchiveDirectory, fmt.Sprintf("%s-%s.tar.gz", name, time.Now().Format("20060102T150405")))
	a := &archive.Archive{Files: inputs}
	if err := a.Create(ctx, dst); err != nil {
		_ = os.Remove(dst)
		log.WithField("error", err).Fatal("failed to create archive")
	}
	journal(config.Get().ScratchPath(), models.ActivitySaveInputs, dst, models.ActivityMeta{"inputs": len(inputs)})
	log.WithField("path", dst).Info("inputs saved")
	fmt.Println(dst)
}

func scratchRestoreRun(cmd *cobra.Command, args []string) {
	defer startProfiler()()
	src, dir := args[0], args[1]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := archive.Extract(ctx, src, dir); err != nil {
		log.WithField("error", err).Fatal("failed to extract archive")
	}
	log.WithField("path", dir).Info("archive restored")
}
