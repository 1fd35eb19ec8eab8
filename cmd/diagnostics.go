package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/acobaugh/osrelease"
	"github.com/apex/log"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cvaske/sonLib/config"
	"github.com/cvaske/sonLib/internal/database"
	"github.com/cvaske/sonLib/internal/models"
	"github.com/cvaske/sonLib/loggers/cli"
	"github.com/cvaske/sonLib/scratch"
	"github.com/cvaske/sonLib/system"
)

const (
	DefaultHastebinUrl = "https://hastebin.com"
	DefaultLogLines    = 200
)

var diagnosticsArgs struct {
	IncludeLogs        bool
	ReviewBeforeUpload bool
	HastebinURL        string
	LogLines           int
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Collect and report information about this sonlib instance to assist in debugging.",
	PreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		log.SetHandler(cli.Default)
	},
	Run: diagnosticsCmdRun,
}

func init() {
	diagnosticsCmd.Flags().StringVar(&diagnosticsArgs.HastebinURL, "hastebin-url", DefaultHastebinUrl, "the url of the hastebin instance to use")
	diagnosticsCmd.Flags().IntVar(&diagnosticsArgs.LogLines, "log-lines", DefaultLogLines, "the number of log lines to include in the report")
}

// diagnosticsCmdRun collects a report covering the executable version, the
// host, the configuration, the state of the scratch tree and the most recent
// activity, and optionally uploads it for sharing.
func diagnosticsCmdRun(cmd *cobra.Command, args []string) {
	questions := []*survey.Question{
		{
			Name:   "IncludeLogs",
			Prompt: &survey.Confirm{Message: "Do you want to include the latest logs?", Default: true},
		},
		{
			Name: "ReviewBeforeUpload",
			Prompt: &survey.Confirm{
				Message: "Do you want to review the collected data before uploading to " + diagnosticsArgs.HastebinURL + "?",
				Help:    "The data might contain paths or file names you consider sensitive, so you should review it. You will be asked again if you want to upload.",
				Default: true,
			},
		},
	}
	if err := survey.Ask(questions, &diagnosticsArgs); err != nil {
		if err == terminal.InterruptErr {
			return
		}
		panic(err)
	}

	cfg := config.Get()

	output := &strings.Builder{}
	fmt.Fprintln(output, "sonlib - Diagnostics Report")
	printHeader(output, "Versions")
	fmt.Fprintln(output, "              sonlib:", system.Version)
	fmt.Fprintln(output, "                  Go:", runtime.Version())
	if release, err := osrelease.Read(); err == nil {
		fmt.Fprintln(output, "                  OS:", release["PRETTY_NAME"])
	}

	printHeader(output, "Configuration")
	fmt.Fprintln(output, "      Root Directory:", cfg.System.RootDirectory)
	fmt.Fprintln(output, "      Logs Directory:", cfg.System.LogDirectory)
	fmt.Fprintln(output, "   Archive Directory:", cfg.System.ArchiveDirectory)
	fmt.Fprintln(output, "   Scratch Directory:", cfg.ScratchPath())
	fmt.Fprintln(output, " Files Per Directory:", cfg.Scratch.FilesPerDirectory)
	fmt.Fprintln(output, "              Levels:", cfg.Scratch.Levels)
	fmt.Fprintln(output, "    Activity Journal:", cfg.Scratch.ActivityJournal)
	fmt.Fprintln(output, "         Server Time:", time.Now().Format(time.RFC1123Z))
	fmt.Fprintln(output, "          Debug Mode:", config.Debug())

	printHeader(output, "Scratch Tree")
	if t, err := scratch.New(cfg.ScratchPath(), cfg.Scratch.FilesPerDirectory, cfg.Scratch.Levels); err != nil {
		fmt.Fprintln(output, "Failed to open scratch tree:", err.Error())
	} else {
		fmt.Fprintln(output, "            Capacity:", t.Capacity())
		if entries, err := t.ListAll(); err != nil {
			fmt.Fprintln(output, "Failed to list entries:", err.Error())
		} else {
			fmt.Fprintln(output, "        Live Entries:", len(entries))
		}
		if usage, err := t.Usage(); err == nil {
			fmt.Fprintln(output, "          Disk Usage:", usage, "bytes")
		}
	}

	printHeader(output, "Recent Activity")
	if cfg.Scratch.ActivityJournal {
		if err := openJournal(); err != nil {
			fmt.Fprintln(output, "Failed to open activity journal:", err.Error())
		} else {
			var activity []models.Activity
			tx := database.Instance().Order("timestamp desc").Limit(20).Find(&activity)
			if tx.Error != nil {
				fmt.Fprintln(output, "Failed to read activity journal:", tx.Error.Error())
			}
			for _, a := range activity {
				fmt.Fprintf(output, "%s %s %s\n", a.Timestamp.Format(time.RFC3339), a.Event, a.Path)
			}
		}
	} else {
		fmt.Fprintln(output, "Activity journal disabled.")
	}

	printHeader(output, "Latest Logs")
	if diagnosticsArgs.IncludeLogs {
		p := path.Join(cfg.System.LogDirectory, "sonlib.log")
		if c, err := exec.Command("tail", "-n", strconv.Itoa(diagnosticsArgs.LogLines), p).Output(); err != nil {
			fmt.Fprintln(output, "No logs found or an error occurred.")
		} else {
			fmt.Fprintf(output, "%s\n", string(c))
		}
	} else {
		fmt.Fprintln(output, "Logs redacted.")
	}

	fmt.Println("\n---------------  generated report  ---------------")
	fmt.Println(output.String())
	fmt.Print("---------------   end of report    ---------------\n\n")

	upload := !diagnosticsArgs.ReviewBeforeUpload
	if !upload {
		survey.AskOne(&survey.Confirm{Message: "Upload to " + diagnosticsArgs.HastebinURL + "?", Default: false}, &upload)
	}
	if upload {
		u, err := uploadToHastebin(diagnosticsArgs.HastebinURL, output.String())
		if err == nil {
			fmt.Println("Your report is available here: ", u)
		}
	}
}

func uploadToHastebin(hbUrl, content string) (string, error) {
	r := strings.NewReader(content)
	u, err := url.Parse(hbUrl)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, "documents")
	res, err := http.Post(u.String(), "plain/text", r)
	if err != nil || res.StatusCode != 200 {
		fmt.Println("Failed to upload report to ", u.String(), err)
		return "", err
	}
	pres := make(map[string]interface{})
	body, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("Failed to parse response.", err)
		return "", err
	}
	json.Unmarshal(body, &pres)
	if key, ok := pres["key"].(string); ok {
		u, _ := url.Parse(hbUrl)
		u.Path = path.Join(u.Path, key)
		return u.String(), nil
	}
	return "", fmt.Errorf("failed to find key in response")
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, "\n|\n|", title)
	fmt.Fprintln(w, "| ------------------------------")
}
