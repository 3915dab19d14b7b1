package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/crosscheck"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List registered language front-ends",
	Long: `Languages lists every front-end with its aliases and file patterns, including
patterns added through parser.languages in the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		return runLanguages(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(out io.Writer, cfg *config.Config) error {
	p, err := cfg.NewParser()
	if err != nil {
		return err
	}
	reg := p.Registry()
	checker := crosscheck.New()

	extra := make(map[string][]string)
	for _, lp := range cfg.Parser.Languages {
		fe, err := reg.Resolve(lp.Language)
		if err != nil {
			return err
		}
		extra[fe.Language] = append(extra[fe.Language], lp.Pattern)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tALIASES\tPATTERNS\tCROSSCHECK")
	for _, lang := range reg.Languages() {
		fe, err := reg.Resolve(lang)
		if err != nil {
			return err
		}
		patterns := append(append([]string(nil), fe.Patterns...), extra[lang]...)
		cc := "no"
		if checker.Supports(lang) {
			cc = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", lang, orDash(fe.Aliases), orDash(patterns), cc)
	}
	return tw.Flush()
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
