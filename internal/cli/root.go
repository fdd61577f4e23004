// Package cli implements the appprofile command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/loader"
	"github.com/dshills/appprofile/internal/appprofile/session"
	"github.com/dshills/appprofile/internal/logging"
	"github.com/dshills/appprofile/internal/prefs"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// app holds what commands share: output streams, preferences and the
// open session.
type app struct {
	out    io.Writer
	errOut io.Writer

	fs        loader.FileSystem
	home      string
	lookupEnv func(string) (string, bool)

	flags struct {
		prefsPath   string
		searchPath  []string
		globalFile  string
		logLevel    string
		logFormat   string
		updateRules bool
		noBackup    bool
		dryRun      bool
		force       bool
	}

	prefs  prefs.Prefs
	logger *zap.Logger
	sess   *session.Session
}

// NewRootCommand creates the appprofile command tree writing to the
// given streams.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	home, _ := os.UserHomeDir()
	return newRootCommand(&app{
		out:       out,
		errOut:    errOut,
		fs:        loader.DefaultFS(),
		home:      home,
		lookupEnv: os.LookupEnv,
	})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "appprofile",
		Short: "Inspect and edit NVIDIA application profiles",
		Long: `appprofile reads the application profile configuration used by the
NVIDIA OpenGL driver: rules that match processes or libraries, the
profiles of driver settings they apply, and the global enable switch.

Files are read from a search path of files and directories. Edits are
written back to the file each rule or profile came from.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.sess != nil {
				a.sess.Close()
			}
		},
	}

	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nCommit: %s\nBuilt: %s\nGo version: %s\nPlatform: %s/%s\n",
		Commit, BuildDate, goVersion(), runtime.GOOS, runtime.GOARCH))

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.prefsPath, "prefs", "", "preferences file (default $HOME/.nv/appprofile.toml)")
	pf.StringSliceVar(&a.flags.searchPath, "search-path", nil, "configuration files and directories, highest priority first")
	pf.StringVar(&a.flags.globalFile, "global-file", "", "global configuration file")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format (console, json)")
	pf.BoolVar(&a.flags.updateRules, "update-rules", true, "repoint rules when a profile is renamed")
	pf.BoolVar(&a.flags.noBackup, "no-backup", false, "do not keep backups of overwritten files")
	pf.BoolVar(&a.flags.dryRun, "dry-run", false, "print the files an edit would write instead of writing them")
	pf.BoolVar(&a.flags.force, "force", false, "save even if files changed on disk since they were read")

	root.AddCommand(
		newRulesCommand(a),
		newProfilesCommand(a),
		newKeysCommand(a),
		newShowCommand(a),
		newCheckCommand(a),
		newRuleCommand(a),
		newProfileCommand(a),
		newEnableCommand(a, true),
		newEnableCommand(a, false),
		newWatchCommand(a),
	)

	return root
}

func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// open loads preferences, applies flag overrides and opens the session.
func (a *app) open(cmd *cobra.Command) error {
	p, err := prefs.LoadWithEnv(a.fs, a.home, a.flags.prefsPath, a.lookupEnv)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("search-path") {
		p.SearchPath = a.flags.searchPath
	}
	if flags.Changed("global-file") {
		p.GlobalFile = a.flags.globalFile
	}
	if flags.Changed("log-level") {
		p.Log.Level = a.flags.logLevel
	}
	if flags.Changed("log-format") {
		p.Log.Format = a.flags.logFormat
	}
	if flags.Changed("update-rules") {
		p.UpdateRulesOnProfileNameChange = a.flags.updateRules
	}
	if a.flags.noBackup {
		p.Backup = false
	}
	a.prefs = p

	level, err := logging.ParseLevel(p.Log.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(p.Log.Format)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{Level: level, Output: a.errOut, Format: format})

	a.sess = session.Open(session.Options{
		SearchPath:                     p.SearchPath,
		GlobalFile:                     p.GlobalFile,
		FS:                             a.fs,
		Logger:                         a.logger,
		UpdateRulesOnProfileNameChange: p.UpdateRulesOnProfileNameChange,
	})
	for _, e := range a.sess.LoadResult().Errors {
		fmt.Fprintf(a.errOut, "warning: %v (the file is ignored and will not be modified)\n", e.Err)
	}
	return nil
}

func (a *app) config() *appprofile.Config {
	return a.sess.Current()
}

func (a *app) printWarnings(warnings []appprofile.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(a.errOut, "warning: %s\n", w.Message)
	}
}

// defaultTarget returns the file new rules and profiles go to: the first
// search path entry that can hold one.
func (a *app) defaultTarget() (string, error) {
	cfg := a.config()
	for _, e := range cfg.SearchPath() {
		if e.Kind != loader.EntryDir {
			if ok, _ := cfg.CheckValidSourceFile(e.Path); ok {
				return e.Path, nil
			}
		}
	}
	return "", fmt.Errorf("no writable configuration file on the search path; use --file")
}

// commit writes the session's pending updates, or prints them with
// --dry-run.
func (a *app) commit() error {
	updates, err := a.sess.PendingUpdates()
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		fmt.Fprintln(a.out, "no changes")
		return nil
	}

	if a.flags.dryRun {
		for _, u := range updates {
			if u.Delete {
				fmt.Fprintf(a.out, "would delete %s\n", u.Filename)
			} else {
				fmt.Fprintf(a.out, "would write %s\n", u.Filename)
			}
			if a.prefs.Backup {
				if _, err := a.fs.Stat(u.Filename); err == nil {
					fmt.Fprintf(a.out, "  backup: %s\n", a.sess.BackupFilename(u.Filename))
				}
			}
			if !u.Delete {
				fmt.Fprint(a.out, u.Text)
			}
		}
		return nil
	}

	res, err := a.sess.Save(session.SaveOptions{Backup: a.prefs.Backup, Force: a.flags.force})
	if res != nil {
		for _, path := range res.Written {
			if backup, ok := res.Backups[path]; ok {
				fmt.Fprintf(a.out, "wrote %s (backup: %s)\n", path, backup)
			} else {
				fmt.Fprintf(a.out, "wrote %s\n", path)
			}
		}
		for _, path := range res.Deleted {
			fmt.Fprintf(a.out, "deleted %s\n", path)
		}
	}
	return err
}
