package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/core/store"
	"github.com/solatis/windowkeeper/internal/types"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset persisted condition state (sql backend)",
}

var stateShowCmd = &cobra.Command{
	Use:   "show RULE_ID",
	Short: "Show the persisted windows of a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset RULE_ID",
	Short: "Delete the persisted windows of a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateReset,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateResetCmd)
}

func openSQLStore(cmd *cobra.Command) (*store.SQLStore, func() error, error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, queries, err := openDatabase(cmd.Context(), dbURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewSQLStore(queries), database.Close, nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	ruleID, err := types.ParseRuleID(args[0])
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}
	st, closeDB, err := openSQLStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := st.ForRule(cmd.Context(), ruleID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCOMPONENT\tTYPE\tLIMIT\tSAMPLES\tFIRST\tLAST\tFULFILLED")
	for _, rec := range records {
		first, last := "-", "-"
		if ts, ok := rec.TimeBasedState.First(); ok {
			first = fmt.Sprint(ts)
		}
		if ts, ok := rec.TimeBasedState.Last(); ok {
			last = fmt.Sprint(ts)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%t\n",
			rec.Key(), rec.ComponentID, rec.Type, rec.TimeLimit, rec.TimeBasedState.Len(), first, last, rec.Fulfilled)
	}
	return w.Flush()
}

func runStateReset(cmd *cobra.Command, args []string) error {
	ruleID, err := types.ParseRuleID(args[0])
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}
	st, closeDB, err := openSQLStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := st.DeleteRule(cmd.Context(), ruleID)
	if err != nil {
		return err
	}
	logging.FromContext(cmd.Context()).Infow("Condition state deleted", "rule", ruleID, "records", n)
	return nil
}
