package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saifjishan/chatmeme/internal/cache"
	"github.com/saifjishan/chatmeme/internal/config"
	"github.com/saifjishan/chatmeme/internal/domain"
	"github.com/saifjishan/chatmeme/internal/logger"
	"github.com/saifjishan/chatmeme/internal/service"
)

var (
	cfgFile string
	prompt  string
	output  string
	raw     bool

	rootCmd = &cobra.Command{
		Use:   "memectl",
		Short: "One-shot meme generation from the command line",
		Long:  "memectl runs the analyze/search/compose pipeline once and writes the resulting PNG, without starting the API server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			// The orchestrator sasses prompts without the trigger tag;
			// a one-shot tool wants the pipeline, so append it unless
			// the caller asked for raw behavior.
			effective := prompt
			if !raw && !strings.Contains(strings.ToLower(effective), domain.TriggerTag) {
				effective += " " + domain.TriggerTag
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logg := logger.New(&logger.Config{
				Level:       "warn",
				Format:      "text",
				Output:      os.Stderr,
				ServiceName: "memectl",
			})
			logger.SetDefaultLogger(logg)

			orchestrator := buildOrchestrator(cfg)

			result, err := orchestrator.HandleTurn(cmd.Context(), effective)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
			if result.Meme == nil {
				if result.Mode == domain.TurnModeMeme {
					os.Exit(1)
				}
				return nil
			}

			if err := os.WriteFile(output, result.Meme, 0o644); err != nil {
				return fmt.Errorf("write meme: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(result.Meme))
			return nil
		},
		Example: `memectl --prompt "Create a meme about coding frustrations" -o frustration.png`,
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Path to config file (default searches ./configs)")
	rootCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Meme prompt (required)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "meme.png", "Output PNG path")
	rootCmd.Flags().BoolVar(&raw, "raw", false, "Do not append the #play-it-safe tag; sassy replies possible")
}

// buildOrchestrator wires the pipeline without history: one-shot runs
// should not write to the chat sidebar.
func buildOrchestrator(cfg *config.Config) *service.OrchestratorService {
	analyzer := service.NewAnalyzerService(&service.AnalyzerConfig{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Cache:   cache.NewMemoryStore(cfg.Cache.Analysis.Size, cfg.Cache.Analysis.TTL),
	})

	chatter := service.NewChatService(&service.ChatConfig{
		Model:   cfg.LLM.ChatModel,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})

	retriever := service.NewRetrieverService(&service.RetrieverConfig{
		BaseURL:      cfg.Search.BaseURL,
		APIKey:       cfg.Search.APIKey,
		RetryCount:   cfg.Search.RetryCount,
		RetryBackoff: cfg.Search.RetryBackoff,
	})

	var remover service.BackgroundRemover = service.NoopBackgroundRemover{}
	if cfg.BgRemoval.Enabled {
		remover = service.NewHTTPBackgroundRemover(&service.BgRemovalConfig{
			Endpoint: cfg.BgRemoval.Endpoint,
			APIKey:   cfg.BgRemoval.APIKey,
		})
	}

	compositor := service.NewCompositorService(&service.CompositorConfig{
		Remover:      remover,
		Padding:      cfg.Compose.Padding,
		MinSize:      cfg.Compose.MinSize,
		MaxSize:      cfg.Compose.MaxSize,
		TextMaxWidth: cfg.Compose.TextMaxWidth,
	})

	return service.NewOrchestratorService(&service.OrchestratorConfig{
		Analyzer:    analyzer,
		Retriever:   retriever,
		Compositor:  compositor,
		Chatter:     chatter,
		ResultCount: cfg.Search.ResultCount,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
