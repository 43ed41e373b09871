package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/api"
	"github.com/kalambet/talkscope/internal/config"
	"github.com/kalambet/talkscope/internal/llm"
	"github.com/kalambet/talkscope/internal/transcript"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a transcript and print the JSON report",
	Long: `Analyze a transcript and print the JSON report to stdout.

The file may be a UTF-8 text export or a PDF. By default the configured
provider is called directly; with --server the file is sent to a running
talkscope server instead.

Examples:
  talkscope analyze ./KakaoTalk_chat.txt
  talkscope analyze ./chat.txt --advanced --model gemini-2.5-flash
  talkscope analyze ./chat.txt --server 127.0.0.1:8000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		advanced, _ := cmd.Flags().GetBool("advanced")
		models, _ := cmd.Flags().GetStringSlice("model")
		serverAddr, _ := cmd.Flags().GetString("server")

		levelFlag, _ := cmd.Flags().GetString("level")
		level, err := analysis.ParseDetailLevel(levelFlag)
		if err != nil {
			return err
		}
		if advanced {
			level = analysis.Advanced
		}

		var an api.Analyzer
		if serverAddr != "" {
			if len(models) > 0 {
				printWarning("--model is ignored with --server; the server uses its own candidate list")
			}
			an = remoteAnalyzer{client: newAPIClient(serverAddr)}
		} else {
			provider, err := llm.New(cfg.LLM)
			if err != nil {
				return err
			}
			if cfg.LLM.Provider == config.ProviderGemini && !cfg.APIConfigured() {
				printWarning("GEMINI_API_KEY is not set")
			}
			an = newRunner(provider, cfg, models)
		}

		return analyzeFile(cmd.Context(), an, args[0], level, cmd.OutOrStdout())
	},
}

func init() {
	analyzeCmd.Flags().Bool("advanced", false, "include statistics, deep emotions, patterns and predictions")
	analyzeCmd.Flags().String("level", "basic", "detail level: basic or advanced")
	analyzeCmd.Flags().StringSlice("model", nil, "candidate model, most preferred first (repeatable; default from config)")
	analyzeCmd.Flags().String("server", "", "address of a running talkscope server to analyze on")
}

func analyzeFile(ctx context.Context, an api.Analyzer, path string, level analysis.DetailLevel, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading transcript: %w", err)
	}
	text, err := transcript.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	printStep("Analyzing %s (%s)", filepath.Base(path), level)
	start := time.Now()
	res, err := an.Analyze(ctx, analysis.Request{Transcript: text, Level: level})
	if err != nil {
		return err
	}
	printSuccess("Analyzed with %s in %s (id %s)", res.Model, time.Since(start).Round(time.Millisecond), res.ID)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res.Data)
}

// --- validate ---

// validateConcurrency bounds how many files are read at once.
const validateConcurrency = 4

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that transcripts have enough messages to analyze",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := validateFiles(cmd.Context(), args)
		if err != nil {
			return err
		}

		invalid := 0
		for _, r := range results {
			if r.Valid {
				printSuccess("%s: %d messages", r.Path, r.MessageCount)
				continue
			}
			invalid++
			printError("%s: %s", r.Path, r.Error)
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d files invalid", invalid, len(results))
		}
		return nil
	},
}

type fileValidation struct {
	Path string
	transcript.Validation
}

// validateFiles validates paths concurrently. Results keep the order of
// paths; an unreadable file is reported as invalid rather than aborting
// the batch.
func validateFiles(ctx context.Context, paths []string) ([]fileValidation, error) {
	results := make([]fileValidation, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(validateConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				results[i] = fileValidation{Path: p, Validation: transcript.Validation{Error: err.Error()}}
				return nil
			}
			results[i] = fileValidation{Path: p, Validation: transcript.ValidateBytes(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check which candidate models the provider offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		printStep("Checking %d candidate models with %s", len(cfg.Analysis.Models), cfg.LLM.Provider)
		missing, err := llm.CheckModels(ctx, provider, cfg.Analysis.Models, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			printWarning("Not listed (skipped at call time if unavailable): %s", strings.Join(missing, ", "))
			return nil
		}
		printSuccess("All candidate models available")
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show talkscope server and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverAddr, _ := cmd.Flags().GetString("server")
		if serverAddr == "" {
			serverAddr = cfg.Server.Addr()
		}
		showStatus(cmd.Context(), newAPIClient(serverAddr), cfg)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("server", "", "server address (default from config)")
}

func showStatus(ctx context.Context, client *apiClient, cfg config.Config) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	h, err := client.health(ctx)
	switch {
	case err != nil:
		printStatus("Server", "stopped (%s)", client.baseURL)
	case h.APIConfigured:
		printStatus("Server", "%s at %s", h.Status, client.baseURL)
	default:
		printStatus("Server", "%s at %s, API key missing", h.Status, client.baseURL)
	}

	printStatus("Provider", "%s", cfg.LLM.Provider)
	printStatus("API key", "%s", configuredLabel(cfg.APIConfigured()))
	printStatus("Models", "%s", strings.Join(cfg.Analysis.Models, ", "))
	printStatus("Config", "%s", config.ConfigFilePath())
}

func configuredLabel(ok bool) string {
	if ok {
		return colorize(colorGreen, "configured")
	}
	return colorize(colorYellow, "not configured")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
	// show loads the config itself; set must work even when the current
	// file does not validate.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		printStatus("API key", "%s", configuredLabel(cfg.APIConfigured()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value in " + config.ConfigFilePath() + ".\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
