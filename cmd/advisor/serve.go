package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/method-advisor/internal/config"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveProvider   string
	serveCatalog    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for running the recommendation pipeline.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVarP(&serveProvider, "provider", "p", "", "Default LLM provider: deepseek, openai, qwen or gemini")
	serveCmd.Flags().StringVar(&serveCatalog, "catalog", "", "Path to an external method catalog JSON file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	var cfg config.Config
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = serveProvider
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog = serveCatalog
	}
	cfg = cfg.MergeWithDefaults(config.FromEnv())
	cfg = cfg.MergeWithDefaults(config.Config{Provider: string(llm.ProviderDeepSeek)})

	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		Provider:    llm.Provider(cfg.Provider),
		CatalogPath: cfg.Catalog,
		Static:      cfg.Static(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
