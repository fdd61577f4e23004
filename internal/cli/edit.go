package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/appprofile/internal/appprofile"
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rule id %q", s)
	}
	return id, nil
}

func newRuleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Add, change, remove or reorder rules",
		Example: `  # Apply the "fast" profile to a game
  appprofile rule add --matches game.bin --profile fast

  # Raise a rule's priority by two places
  appprofile rule move 3 --by -2`,
	}
	cmd.AddCommand(
		newRuleAddCommand(a),
		newRuleUpdateCommand(a),
		newRuleRemoveCommand(a),
		newRuleMoveCommand(a),
	)
	return cmd
}

type ruleFlags struct {
	file    string
	feature string
	matches string
	profile string
	json    string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "file the rule is stored in")
	cmd.Flags().StringVar(&f.feature, "feature", string(appprofile.FeatureProcname), "what the pattern matches: procname, dso or true")
	cmd.Flags().StringVar(&f.matches, "matches", "", "string the feature must equal")
	cmd.Flags().StringVar(&f.profile, "profile", "", "profile applied when the rule matches")
	cmd.Flags().StringVar(&f.json, "json", "", `whole rule as JSON: {"pattern": {"feature": ..., "matches": ...}, "profile": ...}`)
	for _, name := range []string{"feature", "matches", "profile"} {
		cmd.MarkFlagsMutuallyExclusive("json", name)
	}
}

// spec builds the rule from --json when given, otherwise from base with
// the changed pattern and profile flags applied.
func (f *ruleFlags) spec(cmd *cobra.Command, base appprofile.RuleSpec) (appprofile.RuleSpec, error) {
	flags := cmd.Flags()
	if flags.Changed("json") {
		return appprofile.ParseRuleJSON([]byte(f.json))
	}
	if flags.Changed("feature") {
		base.Pattern.Feature = appprofile.Feature(f.feature)
	}
	if flags.Changed("matches") {
		base.Pattern.Matches = f.matches
	}
	if flags.Changed("profile") {
		base.Profile = f.profile
	}
	return base, nil
}

// applyRule checks spec for target, prints warnings and runs fn.
func (a *app) applyRule(target string, spec appprofile.RuleSpec, fn func() error) error {
	warnings, err := a.config().CheckRule(target, spec)
	if err != nil {
		return err
	}
	a.printWarnings(warnings)
	if err := fn(); err != nil {
		return err
	}
	return a.commit()
}

func newRuleAddCommand(a *app) *cobra.Command {
	var f ruleFlags
	var priority int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			spec, err := f.spec(cmd, appprofile.RuleSpec{
				Pattern: appprofile.Pattern{Feature: appprofile.Feature(f.feature)},
			})
			if err != nil {
				return err
			}
			target := f.file
			if target == "" {
				if target, err = a.defaultTarget(); err != nil {
					return err
				}
			}
			return a.applyRule(target, spec, func() error {
				id, _, err := cfg.CreateRule(target, spec)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("priority") {
					if _, err := cfg.SetRulePriority(id, priority); err != nil {
						return err
					}
				}
				fmt.Fprintf(a.out, "added rule %d at priority %d\n", id, cfg.RuleIndex(id))
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&priority, "priority", 0, "position in the rule list, 0 is highest")
	cmd.MarkFlagsOneRequired("profile", "json")
	return cmd
}

func newRuleUpdateCommand(a *app) *cobra.Command {
	var f ruleFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a rule's pattern, profile or file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg := a.config()
			r, ok := cfg.Rule(id)
			if !ok {
				return fmt.Errorf("%w: %d", appprofile.ErrRuleNotFound, id)
			}

			spec, err := f.spec(cmd, r.Spec())
			if err != nil {
				return err
			}
			target := r.Source
			if cmd.Flags().Changed("file") {
				target = f.file
			}

			return a.applyRule(target, spec, func() error {
				_, err := cfg.UpdateRule(target, id, spec)
				return err
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newRuleRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.config().DeleteRule(id); err != nil {
				return err
			}
			return a.commit()
		},
	}
}

func newRuleMoveCommand(a *app) *cobra.Command {
	var by, to int
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Change a rule's priority",
		Long: `Move a rule up (negative --by) or down (positive --by) the priority
list, or to an absolute position with --to. A rule that moves past the
first or last rule of its file moves into the neighbouring file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg := a.config()
			flags := cmd.Flags()
			switch {
			case flags.Changed("to"):
				_, err = cfg.SetRulePriority(id, to)
			case flags.Changed("by"):
				_, err = cfg.ChangeRulePriority(id, by)
			default:
				return fmt.Errorf("one of --by or --to is required")
			}
			if err != nil {
				return err
			}
			r, _ := cfg.Rule(id)
			fmt.Fprintf(a.out, "rule %d is now at priority %d in %s\n", id, cfg.RuleIndex(id), r.Source)
			return a.commit()
		},
	}
	cmd.Flags().IntVar(&by, "by", 0, "places to move, negative raises priority")
	cmd.Flags().IntVar(&to, "to", 0, "new position, 0 is highest")
	cmd.MarkFlagsMutuallyExclusive("by", "to")
	return cmd
}

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create, change, remove or rename profiles",
		Example: `  # Create or replace a profile
  appprofile profile set fast GLFSAAMode=0x5 GLYield='"NOTHING"'

  # Change one setting, keeping the others
  appprofile profile set fast --merge GLDoom3=true`,
	}
	cmd.AddCommand(
		newProfileSetCommand(a),
		newProfileRemoveCommand(a),
		newProfileRenameCommand(a),
		newProfileNewNameCommand(a),
	)
	return cmd
}

// parseSettings parses KEY=VALUE arguments. Values use the configuration
// file syntax: numbers, true/false, or quoted strings.
func parseSettings(args []string) ([]appprofile.Setting, error) {
	settings := make([]appprofile.Setting, 0, len(args))
	for _, arg := range args {
		key, text, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q, want KEY=VALUE", arg)
		}
		v, err := appprofile.ParseSettingValue(text)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		settings = append(settings, appprofile.Setting{Key: key, Value: v})
	}
	return settings, nil
}

// mergeSettings replaces settings in base whose key matches one in
// updates and appends the rest.
func mergeSettings(base, updates []appprofile.Setting) []appprofile.Setting {
	out := append([]appprofile.Setting(nil), base...)
	for _, u := range updates {
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Key, u.Key) {
				out[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, u)
		}
	}
	return out
}

func newProfileSetCommand(a *app) *cobra.Command {
	var file, settingsJSON string
	var merge bool
	cmd := &cobra.Command{
		Use:   "set <name> [KEY=VALUE...]",
		Short: "Create a profile or replace its settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			name := args[0]
			var settings []appprofile.Setting
			var err error
			if cmd.Flags().Changed("json") {
				if len(args) > 1 {
					return fmt.Errorf("KEY=VALUE arguments cannot be combined with --json")
				}
				settings, err = appprofile.ParseProfileJSON([]byte(settingsJSON))
			} else {
				settings, err = parseSettings(args[1:])
			}
			if err != nil {
				return err
			}

			existing, isUpdate := cfg.Profile(name)
			if merge && isUpdate {
				settings = mergeSettings(existing.Settings, settings)
			}
			target := file
			if target == "" {
				if isUpdate {
					target = existing.Source
				} else if target, err = a.defaultTarget(); err != nil {
					return err
				}
			}

			warnings, err := cfg.CheckProfile(target, name, name, settings, !isUpdate)
			if err != nil {
				return err
			}
			a.printWarnings(warnings)
			if _, err := cfg.UpdateProfile(target, name, settings); err != nil {
				return err
			}
			return a.commit()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file the profile is stored in")
	cmd.Flags().BoolVar(&merge, "merge", false, "keep settings not named on the command line")
	cmd.Flags().StringVar(&settingsJSON, "json", "", `settings as JSON: {"settings": [{"key": ..., "value": ...}]} or a bare array`)
	return cmd
}

func newProfileRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Remove a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			if _, err := cfg.DeleteProfile(args[0]); err != nil {
				return err
			}
			for _, r := range cfg.Rules() {
				if r.Profile == args[0] {
					fmt.Fprintf(a.errOut, "warning: rule %d still uses the removed profile %q\n", r.ID, args[0])
				}
			}
			return a.commit()
		},
	}
}

func newProfileRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			oldName, newName := args[0], args[1]
			p, ok := cfg.Profile(oldName)
			if !ok {
				return fmt.Errorf("%w: %q", appprofile.ErrProfileNotFound, oldName)
			}
			warnings, err := cfg.CheckProfile(p.Source, oldName, newName, p.Settings, false)
			if err != nil {
				return err
			}
			a.printWarnings(warnings)
			if _, err := cfg.RenameProfile(oldName, newName); err != nil {
				return err
			}
			return a.commit()
		},
	}
}

func newProfileNewNameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new-name",
		Short: "Print an unused profile name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.out, a.config().UnusedProfileName())
			return nil
		},
	}
}

func newEnableCommand(a *app, enable bool) *cobra.Command {
	use, short := "enable", "Turn application profiles on"
	if !enable {
		use, short = "disable", "Turn application profiles off"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			g := cfg.GlobalFile()
			if g.Path == "" {
				return fmt.Errorf("no global configuration file is set")
			}
			if g.Failed {
				return fmt.Errorf("the global configuration file %s could not be read", g.Path)
			}
			cfg.SetEnabled(enable)
			return a.commit()
		},
	}
}
