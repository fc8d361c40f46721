package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/constrata/pkg/constrata"
)

var repairOut string

var repairCmd = &cobra.Command{
	Use:   "repair [data.csv]",
	Short: "Blank inconsistent cells and impute missing ones",
	Long: `repair runs the two-step cleanup over a CSV dataset: first every
cell implicated in an unsatisfied validation is blanked, then missing
cells are filled from the deduced imputation rules where their sources
survived.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithTimeout(func() error {
			cons, _, err := loadConstraints()
			if err != nil {
				logger.Error("failed to build constraints", zap.Error(err))
				return err
			}
			table, err := readCSVTable(args[0])
			if err != nil {
				logger.Error("failed to read dataset", zap.Error(err))
				return err
			}

			blanked, err := constrata.BlankInvalid(cons, table)
			if err != nil {
				return err
			}
			repaired, err := constrata.ImputeTable(cons, blanked)
			if err != nil {
				return err
			}

			if err := writeCSVTable(repaired, repairOut); err != nil {
				logger.Error("failed to write repaired dataset", zap.Error(err))
				return err
			}
			headerStyle.Printf("Wrote %d repaired rows to %s\n", repaired.NumRows(), repairOut)
			return nil
		})
	},
}

func init() {
	repairCmd.Flags().StringVarP(&repairOut, "out", "o", "repaired.csv", "output CSV path")
}
