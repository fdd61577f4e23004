// Package session ties loading, editing and saving together.
//
// A Session keeps two configurations: Gold, exactly as loaded from disk,
// and Current, the copy being edited. Saving writes the difference and
// reloads, so after a successful save Gold and Current match disk again.
package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/loader"
	"github.com/dshills/appprofile/internal/appprofile/model"
	"github.com/dshills/appprofile/internal/appprofile/notify"
	"github.com/dshills/appprofile/internal/appprofile/registry"
	"github.com/dshills/appprofile/internal/appprofile/save"
	"github.com/dshills/appprofile/internal/logging"
)

// Options configures a Session.
type Options struct {
	// SearchPath lists the rule and profile files and directories, highest
	// priority first.
	SearchPath []string
	// GlobalFile holds the global enable switch. Empty means none.
	GlobalFile string

	FS       loader.FileSystem
	Logger   *zap.Logger
	Registry *registry.Registry

	// UpdateRulesOnProfileNameChange repoints rules when a profile is
	// renamed.
	UpdateRulesOnProfileNameChange bool
	// ReloadOnPartial reloads after a save even when some files failed,
	// dropping the edits that were not written. Otherwise the written files
	// are folded into Gold and the rest stay pending.
	ReloadOnPartial bool
}

// SaveOptions controls Save.
type SaveOptions struct {
	// Backup keeps a copy of each file before overwriting it.
	Backup bool
	// Force saves even when files changed on disk since load.
	Force bool
}

// Session is an editing session over one search path.
type Session struct {
	opts   Options
	logger *zap.Logger
	engine *save.Engine

	gold    *appprofile.Config
	current *appprofile.Config
	result  *appprofile.LoadResult

	rules    *model.RuleModel
	profiles *model.ProfileModel

	notifier *notify.Notifier
	forward  *notify.Subscription
}

// Open loads the configuration and starts a session. Files that fail to
// load are reported by LoadResult; the session is usable regardless.
func Open(opts Options) *Session {
	if opts.FS == nil {
		opts.FS = loader.DefaultFS()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	s := &Session{
		opts:   opts,
		logger: logging.Component(opts.Logger, "session"),
		engine: save.New(
			save.WithFileSystem(opts.FS),
			save.WithLogger(logging.Component(opts.Logger, "save"))),
		rules:    model.NewRuleModel(),
		profiles: model.NewProfileModel(),
		notifier: notify.New(),
	}
	s.Reload()
	return s
}

// Reload discards edits and reads everything from disk again.
func (s *Session) Reload() *appprofile.LoadResult {
	cfgOpts := []appprofile.Option{
		appprofile.WithFileSystem(s.opts.FS),
		appprofile.WithLogger(logging.Component(s.opts.Logger, "config")),
		appprofile.WithUpdateRulesOnProfileNameChange(s.opts.UpdateRulesOnProfileNameChange),
	}
	if s.opts.Registry != nil {
		cfgOpts = append(cfgOpts, appprofile.WithRegistry(s.opts.Registry))
	}

	gold, res := appprofile.Load(s.opts.GlobalFile, s.opts.SearchPath, cfgOpts...)
	if s.current != nil {
		s.forward.Unsubscribe()
		s.current.Notifier().Close()
	}
	s.gold = gold
	s.current = gold.Clone()
	s.result = res

	s.rules.Attach(s.current)
	s.profiles.Attach(s.current)
	s.forward = s.current.Notifier().Subscribe(s.notifier.Notify)
	s.notifier.NotifyReload()

	s.logger.Debug("configuration reloaded",
		zap.Int("files", len(res.Loaded)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)))
	return res
}

// Notifier delivers every change made to Current, and a reload change
// each time Current is replaced. Subscriptions survive reloads.
func (s *Session) Notifier() *notify.Notifier {
	return s.notifier
}

// Close stops change delivery.
func (s *Session) Close() {
	s.forward.Unsubscribe()
	s.current.Notifier().Close()
	s.notifier.Close()
}

// Gold returns the configuration as loaded from disk. It must not be
// modified.
func (s *Session) Gold() *appprofile.Config {
	return s.gold
}

// Current returns the configuration being edited.
func (s *Session) Current() *appprofile.Config {
	return s.current
}

// LoadResult returns the result of the most recent load.
func (s *Session) LoadResult() *appprofile.LoadResult {
	return s.result
}

// RuleModel returns the rule rows of Current.
func (s *Session) RuleModel() *model.RuleModel {
	return s.rules
}

// ProfileModel returns the profile rows of Current.
func (s *Session) ProfileModel() *model.ProfileModel {
	return s.profiles
}

// PendingUpdates returns the file updates a save would write.
func (s *Session) PendingUpdates() ([]save.FileUpdate, error) {
	return save.Validate(s.current, s.gold)
}

// HasUnsavedChanges reports whether Current differs from disk.
func (s *Session) HasUnsavedChanges() bool {
	updates, err := s.PendingUpdates()
	return err != nil || len(updates) > 0
}

// BackupFilename returns where a backup of path would be written.
func (s *Session) BackupFilename(path string) string {
	return s.engine.BackupFilename(path)
}

// ReloadWarnings lists what a reload would lose or pick up: unsaved edits
// and files changed on disk since load.
func (s *Session) ReloadWarnings() []appprofile.Warning {
	var out []appprofile.Warning
	if s.HasUnsavedChanges() {
		out = append(out, appprofile.Warning{
			Code:    appprofile.WarnUnsavedChanges,
			Message: "there are unsaved changes to the configuration which will be lost",
		})
	}
	out = append(out, s.externalWarnings()...)
	return out
}

// SaveWarnings lists non-fatal problems with Current and files changed on
// disk since load.
func (s *Session) SaveWarnings() []appprofile.Warning {
	out := s.current.Warnings()
	return append(out, s.externalWarnings()...)
}

func (s *Session) externalWarnings() []appprofile.Warning {
	_, files := save.CheckBackingFiles(s.current)
	out := make([]appprofile.Warning, len(files))
	for i, f := range files {
		out[i] = appprofile.Warning{
			Code:    appprofile.WarnExternallyModified,
			Path:    f,
			Message: fmt.Sprintf("the file %s has been modified since the configuration was loaded", f),
		}
	}
	return out
}

// Save writes pending updates. Unless opts.Force is set it refuses with
// save.ErrBackingFilesChanged when files changed on disk since load.
// After a save that wrote every file, or any save when ReloadOnPartial is
// set, the session is reloaded. After a partial save otherwise, the files
// that were written count as saved and only the failed ones stay pending.
//
// The returned error combines per-file failures. The Result is non-nil
// whenever a save was attempted.
func (s *Session) Save(opts SaveOptions) (*save.Result, error) {
	updates, err := s.PendingUpdates()
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return &save.Result{Backups: map[string]string{}}, nil
	}

	if !opts.Force {
		if changed, files := save.CheckBackingFiles(s.current); changed {
			return nil, fmt.Errorf("%w: %s", save.ErrBackingFilesChanged, strings.Join(files, ", "))
		}
	}

	res := s.engine.SaveUpdates(updates, opts.Backup)
	s.logger.Info("configuration saved",
		zap.Int("written", len(res.Written)),
		zap.Int("deleted", len(res.Deleted)),
		zap.Int("failed", len(res.Failed)))

	if res.OK() || s.opts.ReloadOnPartial {
		s.Reload()
	} else {
		s.syncSaved(res)
	}
	return res, res.Err()
}

// syncSaved folds the files a partial save wrote into Gold and records
// their new state on disk, so they are neither pending nor reported as
// modified externally.
func (s *Session) syncSaved(res *save.Result) {
	for _, path := range append(append([]string(nil), res.Written...), res.Deleted...) {
		fp, err := loader.TakeFingerprint(s.opts.FS, path)
		if err != nil {
			s.logger.Warn("cannot read saved file", zap.String("path", path), zap.Error(err))
			continue
		}
		s.gold.SyncFile(s.current, path, fp)
		s.current.SetFingerprint(path, fp)
	}
}
