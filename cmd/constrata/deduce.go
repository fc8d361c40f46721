package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	ruleStyle    = color.New(color.FgGreen)
	badStyle     = color.New(color.FgRed, color.Bold)
)

var deduceCmd = &cobra.Command{
	Use:   "deduce",
	Short: "Deduce all implied validation and imputation rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithTimeout(func() error {
			cons, _, err := loadConstraints()
			if err != nil {
				logger.Error("failed to build constraints", zap.Error(err))
				return err
			}

			for _, w := range cons.Warnings() {
				warningStyle.Printf("warning: %v\n", w)
			}

			headerStyle.Println("Validations:")
			for _, v := range cons.Validations() {
				fmt.Printf("  %s\n", v)
			}
			headerStyle.Println("Imputations:")
			for _, im := range cons.Imputations() {
				ruleStyle.Printf("  %s\n", im)
			}
			return nil
		})
	},
}
