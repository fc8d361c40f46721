package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitrdm/constrata/pkg/constrata"
)

var checkCmd = &cobra.Command{
	Use:   "check [data.csv]",
	Short: "Check a CSV dataset against the deduced rules",
	Args:  cobra.ExactArgs(1),
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

			check, err := constrata.CheckTable(cons, table)
			if err != nil {
				return err
			}

			headerStyle.Printf("Checked %d rows:\n", table.NumRows())
			anyBad := false
			for i, rel := range check.Relations {
				var sat, unsat, indet int
				for _, s := range check.Columns[i] {
					switch s {
					case constrata.StatusSatisfied:
						sat++
					case constrata.StatusUnsatisfied:
						unsat++
					default:
						indet++
					}
				}
				line := fmt.Sprintf("  %-40s satisfied=%d unsatisfied=%d indeterminate=%d",
					rel.String(), sat, unsat, indet)
				if unsat > 0 {
					anyBad = true
					badStyle.Println(line)
				} else {
					ruleStyle.Println(line)
				}
			}
			if anyBad {
				return fmt.Errorf("dataset violates at least one relation")
			}
			return nil
		})
	},
}
