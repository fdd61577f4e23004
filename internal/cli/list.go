package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/appprofile/internal/appprofile"
)

var errCheckFailed = errors.New("configuration has errors")

func newRulesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List rules in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.sess.RuleModel()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRIORITY\tID\tPATTERN\tPROFILE\tSOURCE")
			for row := 0; row < m.Len(); row++ {
				r, _ := m.At(row)
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", row, r.ID, pattern(r.Pattern), r.Profile, r.Source)
			}
			return tw.Flush()
		},
	}
}

func pattern(p appprofile.Pattern) string {
	if p.Feature == appprofile.FeatureTrue {
		return string(p.Feature)
	}
	return fmt.Sprintf("%s == %q", p.Feature, p.Matches)
}

func newProfilesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List profiles by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.sess.ProfileModel()
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSETTINGS\tSOURCE")
			for row := 0; row < m.Len(); row++ {
				p, _ := m.At(row)
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, appprofile.Summary(p.Settings), p.Source)
			}
			return tw.Flush()
		},
	}
}

func newKeysCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [query]",
		Short: "List known driver setting keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTYPE\tDESCRIPTION")
			for _, k := range a.config().Registry().Search(query) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Name, k.Type, k.Description)
			}
			return tw.Flush()
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print configuration files as they would be written",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			if len(args) == 1 {
				if g := cfg.GlobalFile(); args[0] == g.Path {
					text, err := cfg.GlobalText()
					if err != nil {
						return err
					}
					fmt.Fprint(a.out, text)
					return nil
				}
				text, ok, err := cfg.FileText(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not a loaded configuration file", args[0])
				}
				fmt.Fprint(a.out, text)
				return nil
			}

			for _, path := range cfg.SourceFilenames() {
				text, _, err := cfg.FileText(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "# %s\n%s", path, text)
			}
			return nil
		},
	}
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report errors and warnings in the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.sess.LoadResult()
			cfg := a.config()

			problems := 0
			for _, e := range res.Errors {
				fmt.Fprintf(a.out, "error: %v\n", e.Err)
				problems++
			}
			for _, w := range res.Warnings {
				switch w.Code {
				case appprofile.WarnUnknownFeature, appprofile.WarnUnreadableEntry, appprofile.WarnDuplicateFile:
					fmt.Fprintf(a.out, "warning: %s\n", w.Message)
					problems++
				}
			}
			for _, w := range cfg.Warnings() {
				fmt.Fprintf(a.out, "warning: %s\n", w.Message)
				problems++
			}

			if problems == 0 {
				fmt.Fprintf(a.out, "ok: %d rules, %d profiles in %d files\n",
					cfg.RuleCount(), len(cfg.ProfileNames()), len(res.Loaded))
			}
			if len(res.Errors) > 0 {
				return errCheckFailed
			}
			return nil
		},
	}
}
