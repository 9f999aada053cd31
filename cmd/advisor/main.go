// Package main provides the entry point for the method advisor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Weight-determination method advisor",
	Long:  "Advisor recommends statistical weight-determination methods by combining rule-based scoring and semantic analysis of questionnaire answers through LLM endpoints.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
