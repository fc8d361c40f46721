// Command constrata deduces validation and imputation rules from declared
// relations over data columns, and applies them to CSV datasets.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
