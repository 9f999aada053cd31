package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/method-advisor/internal/catalog"
	"github.com/jonathan/method-advisor/internal/config"
	"github.com/jonathan/method-advisor/internal/llm"
	"github.com/jonathan/method-advisor/internal/observability"
	"github.com/jonathan/method-advisor/internal/recommend"
	"github.com/jonathan/method-advisor/internal/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run the full recommendation pipeline",
	Long: `Analyzes questionnaire answers, scores the method catalog, supplements
with model-proposed methods when catalog scores are weak, and ranks the
final candidates by weighted rule and semantic scores.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runRecommendCmd,
}

var (
	recConfigPath      string
	recQuestionnaire   string
	recDataDescription string
	recDataFile        string
	recProvider        string
	recAPIKey          string
	recCatalogPath     string
	recOutput          string
	recVerbose         bool
)

func init() {
	recommendCmd.Flags().StringVar(&recConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	recommendCmd.Flags().StringVarP(&recQuestionnaire, "questionnaire", "q", "", "Path to questionnaire answers JSON file (required)")
	recommendCmd.Flags().StringVarP(&recDataDescription, "data-description", "d", "", "Description of the user's indicator data")
	recommendCmd.Flags().StringVar(&recDataFile, "data-file", "", "Path to a text file describing the user's data (mutually exclusive with --data-description)")
	recommendCmd.Flags().StringVarP(&recProvider, "provider", "p", "", "LLM provider: deepseek, openai, qwen or gemini")
	recommendCmd.Flags().StringVar(&recAPIKey, "api-key", "", "API key (optional, defaults to the provider's env var)")
	recommendCmd.Flags().StringVar(&recCatalogPath, "catalog", "", "Path to an external method catalog JSON file")
	recommendCmd.Flags().StringVarP(&recOutput, "output", "o", "", "Write the result bundle JSON to this file instead of stdout")
	recommendCmd.Flags().BoolVarP(&recVerbose, "verbose", "v", false, "Print stage-by-stage progress")

	rootCmd.AddCommand(recommendCmd)
}

// mergedConfig loads the optional config file and applies CLI overrides
func mergedConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if recConfigPath != "" {
		loaded, err := config.LoadConfig(recConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Only override when the flag was explicitly set
	if cmd.Flags().Changed("provider") {
		cfg.Provider = recProvider
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = recAPIKey
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog = recCatalogPath
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = recVerbose
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	cfg = cfg.MergeWithDefaults(config.Config{Provider: string(llm.ProviderDeepSeek)})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadQuestionnaire reads answers from a JSON file
func loadQuestionnaire(path string) (types.Questionnaire, error) {
	if path == "" {
		return nil, fmt.Errorf("--questionnaire is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questionnaire file: %w", err)
	}
	var q types.Questionnaire
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire JSON: %w", err)
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("questionnaire file %s has no answers", path)
	}
	return q, nil
}

// resolveDataDescription picks the inline flag or reads the file variant
func resolveDataDescription(description, file string) (string, error) {
	if description != "" && file != "" {
		return "", fmt.Errorf("--data-description and --data-file are mutually exclusive; provide only one")
	}
	if file == "" {
		return description, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read data file: %w", err)
	}
	return string(data), nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		return catalog.LoadFile(path)
	}
	return catalog.Load()
}

// verboseProgress prints stage output through the box formatter
func verboseProgress(printer *observability.Printer) recommend.ProgressCallback {
	return func(event recommend.ProgressEvent) {
		fmt.Printf("[%s] %s\n", event.Stage, event.Message)
		switch event.Stage {
		case recommend.StageUserNeeds:
			if profile, ok := event.Content.(*types.UserProfile); ok {
				printer.PrintUserProfile(profile)
			}
		case recommend.StageDataFeatures:
			if profile, ok := event.Content.(*types.DataFeatureProfile); ok {
				printer.PrintDataProfile(profile)
			}
		case recommend.StageRuleMatching:
			if outcome, ok := event.Content.(*types.RuleMatchOutcome); ok {
				printer.PrintRuleMatching(outcome)
			}
		case recommend.StageSemanticAnalysis:
			if results, ok := event.Content.([]types.SemanticAnalysisResult); ok {
				printer.PrintSemanticResults(results)
			}
		case recommend.StageFinalResult:
			if bundle, ok := event.Content.(*types.RecommendationBundle); ok {
				printer.PrintRecommendations(bundle)
			}
		}
	}
}

func runRecommendCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := mergedConfig(cmd)
	if err != nil {
		return err
	}

	questionnaire, err := loadQuestionnaire(recQuestionnaire)
	if err != nil {
		return err
	}

	dataDescription, err := resolveDataDescription(recDataDescription, recDataFile)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load method catalog: %w", err)
	}

	logger := logrus.New()
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	opts := recommend.Options{
		Questionnaire:   questionnaire,
		DataDescription: dataDescription,
		Catalog:         cat,
		Provider:        llm.Provider(cfg.Provider),
		Static:          cfg.Static(),
		Logger:          logrus.NewEntry(logger),
	}
	if cfg.Verbose {
		opts.OnProgress = verboseProgress(observability.NewPrinter(os.Stdout))
	}

	bundle, err := recommend.Run(ctx, opts)
	if err != nil {
		return err
	}

	return writeBundle(bundle, recOutput)
}

func writeBundle(bundle *types.RecommendationBundle, path string) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	fmt.Printf("Result written to %s\n", path)
	return nil
}
