package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var methodsCatalogPath string

var methodsCmd = &cobra.Command{
	Use:   "methods [name]",
	Short: "List catalog methods or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMethods,
}

func init() {
	methodsCmd.Flags().StringVar(&methodsCatalogPath, "catalog", "", "Path to an external method catalog JSON file")
	rootCmd.AddCommand(methodsCmd)
}

func runMethods(_ *cobra.Command, args []string) error {
	cat, err := loadCatalog(methodsCatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load method catalog: %w", err)
	}

	if len(args) == 1 {
		method := cat.Find(args[0])
		if method == nil {
			return fmt.Errorf("method not found: %s", args[0])
		}
		data, err := json.MarshalIndent(method, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	for _, m := range cat.Methods {
		fmt.Printf("%-45s %s\n", m.Name, m.Type)
	}
	return nil
}
