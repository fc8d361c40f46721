package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/constrata/pkg/constrata"
)

var (
	rulesPath string
	timeout   time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "constrata",
	Short: "constrata - deduce and apply data validation and imputation rules",
	Long: `constrata reads a YAML rule file declaring data columns and the
mathematical relations between them, deduces every implied validation and
imputation rule, and can check or repair CSV datasets against them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "f", "rules.yaml", "path to the YAML rule file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall run timeout")
	rootCmd.AddCommand(deduceCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(repairCmd)
}

// runWithTimeout bounds f by the root timeout flag.
func runWithTimeout(f func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f() }()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "constrata timed out")
		os.Exit(1)
		return nil
	case err := <-done:
		return err
	}
}

// loadConstraints builds the deduced rule set from the rule file.
func loadConstraints() (*constrata.Constraints, map[string]constrata.Variable, error) {
	rf, err := constrata.LoadRuleFile(rulesPath)
	if err != nil {
		return nil, nil, err
	}
	vars, rels, err := rf.Build()
	if err != nil {
		return nil, nil, err
	}
	return constrata.NewConstraints(rels), vars, nil
}
