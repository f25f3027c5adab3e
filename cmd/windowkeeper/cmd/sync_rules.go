package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/solatis/windowkeeper/internal/core/config"
	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/core/store"
	"github.com/solatis/windowkeeper/internal/pipeline"
	"github.com/solatis/windowkeeper/internal/rules"
)

var syncRulesCmd = &cobra.Command{
	Use:   "sync-rules",
	Short: "Fetch and validate unsynchronized rules from the dashboard",
	Long: `Fetches the rules the dashboard reports as not synchronized and validates them.
With --output the definitions are saved for 'process --rules-file'; with --mark
the valid rules are marked synchronized on the dashboard.`,
	RunE: runSyncRules,
}

func init() {
	rootCmd.AddCommand(syncRulesCmd)
	syncRulesCmd.Flags().String("output", "", "write fetched definitions to this JSON file")
	syncRulesCmd.Flags().Bool("mark", false, "mark valid rules synchronized")
}

func runSyncRules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	client, err := newDashboardClient(cfg)
	if err != nil {
		return err
	}

	defs, err := client.ActiveComponentRules(ctx)
	if err != nil {
		return err
	}

	// Validation only; checkers built here never see an observation.
	loaded, err := loadRules(ctx, defs, pipeline.NewFragmentBuffer(), store.NewMemoryStatistics())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tNAME\tCONDITIONS\tOPERATOR")
	for _, r := range loaded {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Name, len(r.Conditions), r.Operator)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		log.Infow("Rule definitions written", "path", output)
	}

	if mark, _ := cmd.Flags().GetBool("mark"); mark {
		if err := client.MarkRulesSynchronized(ctx, rules.RuleIDs(loaded)); err != nil {
			return err
		}
		log.Infow("Rules marked synchronized", "rules", len(loaded))
	}
	return nil
}
