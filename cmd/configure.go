package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/config"
)

var configureArgs struct {
	RootDirectory     string
	ScratchDirectory  string
	FilesPerDirectory int
	Levels            int
	Override          bool
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Use a guided setup to create the configuration file.",
	Run:   configureCmdRun,
}

func init() {
	configureCmd.PersistentFlags().StringVar(&configureArgs.RootDirectory, "root-dir", "", "the directory sonlib stores its data in")
	configureCmd.PersistentFlags().IntVar(&configureArgs.FilesPerDirectory, "files-per-dir", 0, "maximum entries per scratch directory")
	configureCmd.PersistentFlags().IntVar(&configureArgs.Levels, "levels", 0, "depth of the scratch tree")
	configureCmd.PersistentFlags().BoolVar(&configureArgs.Override, "override", false, "overwrite an existing configuration file without asking")
}

func configureCmdRun(cmd *cobra.Command, _ []string) {
	if _, err := os.Stat(configPath); err == nil && !configureArgs.Override {
		survey.AskOne(&survey.Confirm{Message: "Override existing configuration file?"}, &configureArgs.Override)
		if !configureArgs.Override {
			fmt.Println("Aborting configuration process, one already exists.")
			os.Exit(1)
		}
	} else if err != nil && !os.IsNotExist(err) {
		log.WithField("error", err).Fatal("failed to stat existing configuration file")
	}

	positiveInt := func(ans interface{}) error {
		s, _ := ans.(string)
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return fmt.Errorf("must be a positive integer")
		}
		return nil
	}

	var answers struct {
		RootDirectory     string `survey:"root"`
		FilesPerDirectory string `survey:"filesperdir"`
		Levels            string `survey:"levels"`
	}
	// Flags short-circuit their prompts for non-interactive use.
	var questions []*survey.Question
	if configureArgs.RootDirectory != "" {
		answers.RootDirectory = configureArgs.RootDirectory
	} else {
		questions = append(questions, &survey.Question{
			Name:     "root",
			Prompt:   &survey.Input{Message: "Data directory:", Default: "/var/lib/sonlib"},
			Validate: survey.Required,
		})
	}
	if configureArgs.FilesPerDirectory > 0 {
		answers.FilesPerDirectory = strconv.Itoa(configureArgs.FilesPerDirectory)
	} else {
		questions = append(questions, &survey.Question{
			Name:     "filesperdir",
			Prompt:   &survey.Input{Message: "Maximum entries per scratch directory:", Default: "500"},
			Validate: positiveInt,
		})
	}
	if configureArgs.Levels > 0 {
		answers.Levels = strconv.Itoa(configureArgs.Levels)
	} else {
		questions = append(questions, &survey.Question{
			Name:     "levels",
			Prompt:   &survey.Input{Message: "Depth of the scratch tree:", Default: "3"},
			Validate: positiveInt,
		})
	}

	if len(questions) > 0 {
		if err := survey.Ask(questions, &answers); err != nil {
			if err == terminal.InterruptErr {
				fmt.Println("\nConfiguration aborted.")
				os.Exit(1)
			}
			log.WithField("error", err).Fatal("failed to gather configuration answers")
		}
	}

	c, err := config.NewAtPath(configPath)
	if err != nil {
		log.WithField("error", err).Fatal("failed to build configuration")
	}
	c.System.RootDirectory = answers.RootDirectory
	c.System.LogDirectory = "/var/log/sonlib"
	c.System.ArchiveDirectory = answers.RootDirectory + "/archives"
	if v, err := strconv.Atoi(answers.FilesPerDirectory); err == nil && v > 0 {
		c.Scratch.FilesPerDirectory = v
	}
	if v, err := strconv.Atoi(answers.Levels); err == nil && v > 0 {
		c.Scratch.Levels = v
	}
	config.Set(c)

	if err := config.WriteToDisk(c); err != nil {
		log.WithField("error", err).Fatal("failed to write configuration to disk")
	}
	log.WithField("path", configPath).Info("successfully configured sonlib")
}
