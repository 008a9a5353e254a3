package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/bioslogtriage/internal/config"
	"github.com/hejijunhao/bioslogtriage/internal/engine"
	"github.com/hejijunhao/bioslogtriage/internal/llm"
	"github.com/hejijunhao/bioslogtriage/internal/logging"
	"github.com/hejijunhao/bioslogtriage/internal/output"
	"github.com/hejijunhao/bioslogtriage/internal/output/file"
	"github.com/hejijunhao/bioslogtriage/internal/output/multi"
	"github.com/hejijunhao/bioslogtriage/internal/output/stdout"
	"github.com/hejijunhao/bioslogtriage/internal/output/webhook"
	"github.com/hejijunhao/bioslogtriage/internal/pipeline"
	"github.com/hejijunhao/bioslogtriage/internal/rulepack"
)

// triageFlags are bound to the root command. Defaults come from config.Load,
// so flags override environment and .env values.
type triageFlags struct {
	input       string
	llmTimeoutS float64
}

func newRootCmd(stdoutW, stderrW io.Writer) *cobra.Command {
	cfg := config.Load()
	var tf triageFlags

	root := &cobra.Command{
		Use:   "bioslogtriage [log]",
		Short: "Triage firmware boot logs into ranked, evidence-backed events",
		Long: `bioslogtriage reads a BIOS/UEFI boot log, reconstructs its boot timeline,
matches rulepack patterns to find fault events, picks the event that most
likely blocked the boot, and emits a JSON report. With --llm it also hands a
bounded evidence pack to a language model for a cited root-cause synthesis.`,
		Version:       config.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if tf.input != "" && tf.input != args[0] {
					return fmt.Errorf("input given twice: --input %s and argument %s", tf.input, args[0])
				}
				tf.input = args[0]
			}
			if tf.input == "" {
				return errors.New("no input log: pass a path or --input")
			}
			if cmd.Flags().Changed("llm-timeout-s") {
				cfg.LLM.Timeout = time.Duration(tf.llmTimeoutS * float64(time.Second))
			}
			return runTriage(cmd, cfg, tf.input, stdoutW, stderrW)
		},
	}
	root.SetOut(stdoutW)
	root.SetErr(stderrW)

	f := root.Flags()
	f.StringVar(&tf.input, "input", "", "Path to the boot log")
	f.StringArrayVar(&cfg.Engine.Rulepacks, "rulepack", cfg.Engine.Rulepacks, "Built-in rulepack name or rulepack file (repeatable; replaces the default pack)")
	f.IntVar(&cfg.Engine.ContextLines, "context-lines", cfg.Engine.ContextLines, "Lines of context around each hit")
	f.BoolVar(&cfg.Engine.NoEvidence, "no-evidence", cfg.Engine.NoEvidence, "Omit evidence line payloads")
	f.IntVar(&cfg.Engine.StallGapLines, "stall-gap-lines", cfg.Engine.StallGapLines, "Minimum marker gap reported as a stall")

	f.BoolVar(&cfg.LLM.Enabled, "llm", cfg.LLM.Enabled, "Run the language-model synthesis stage")
	f.StringVar(&cfg.LLM.Mode, "llm-mode", cfg.LLM.Mode, "Model pass structure: two-pass|single")
	f.StringVar(&cfg.LLM.Provider, "llm-provider", cfg.LLM.Provider, "Model backend: ollama|gemini")
	f.StringVar(&cfg.LLM.Host, "ollama-host", cfg.LLM.Host, "Ollama base URL")
	f.StringVar(&cfg.LLM.Model, "model", cfg.LLM.Model, "Model name")
	f.IntVar(&cfg.LLM.TopK, "llm-top-k", cfg.LLM.TopK, "Maximum events in the evidence pack")
	f.IntVar(&cfg.LLM.MaxChars, "llm-max-chars", cfg.LLM.MaxChars, "Evidence pack size budget in characters")
	f.IntVar(&cfg.LLM.FactsMaxChars, "llm-facts-max-chars", cfg.LLM.FactsMaxChars, "Facts payload budget for the synthesis pass")
	f.Float64Var(&tf.llmTimeoutS, "llm-timeout-s", cfg.LLM.Timeout.Seconds(), "Per-request model timeout in seconds")
	f.StringVar(&cfg.LLM.DumpPrompt, "dump-llm-prompt", "", "Write the first model prompt to this file")

	f.StringVar(&cfg.Output.Mode, "output-mode", cfg.Output.Mode, "Report shape: full|slim|tiny")
	f.StringVar(&cfg.Output.Path, "output", "", "Write the report to this file instead of stdout")
	f.BoolVar(&cfg.Output.Pretty, "pretty", cfg.Output.Pretty, "Indent the JSON report")
	f.StringVar(&cfg.Output.EvidenceJSONL, "evidence-jsonl", "", "Also write one evidence record per line to this file")
	f.StringVar(&cfg.Output.WebhookURL, "webhook-url", cfg.Output.WebhookURL, "Also POST the report to this URL")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")

	root.AddCommand(newValidateCmd(), newRulepacksCmd())
	return root
}

func runTriage(cmd *cobra.Command, cfg config.Config, input string, stdoutW, stderrW io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.WithRun(
		logging.Init(stderrW, cfg.Output.Path == "", logging.ParseLevel(cfg.LogLevel)),
		logging.NewRunID(),
	)

	mode, err := output.ParseMode(cfg.Output.Mode)
	if err != nil {
		return err
	}

	rs, err := rulepack.LoadAll(cfg.Engine.Rulepacks)
	if err != nil {
		return err
	}
	logger.Debug("rules loaded", "rulepacks", cfg.Engine.Rulepacks, "rules", len(rs))

	eng := engine.New(rs, engine.Options{
		ContextLines:         cfg.Engine.ContextLines,
		IncludeEvidenceLines: !cfg.Engine.NoEvidence,
		StallGapLines:        cfg.Engine.StallGapLines,
	})

	out, err := buildOutput(cfg, mode, stdoutW, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.LLM.Enabled {
		gen, err := llm.NewGenerator(cmd.Context(), llm.Config{
			Provider: cfg.LLM.Provider,
			Host:     cfg.LLM.Host,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			Timeout:  cfg.LLM.Timeout,
		})
		if err != nil {
			out.Close()
			return err
		}
		llmMode, err := llm.ParseMode(cfg.LLM.Mode)
		if err != nil {
			out.Close()
			return err
		}
		opts = append(opts, pipeline.WithAnalyzer(llm.NewAnalyzer(gen, llm.Options{
			Mode:          llmMode,
			TopK:          cfg.LLM.TopK,
			MaxChars:      cfg.LLM.MaxChars,
			FactsMaxChars: cfg.LLM.FactsMaxChars,
			Timeout:       cfg.LLM.Timeout,
		})))
		if cfg.LLM.DumpPrompt != "" {
			opts = append(opts, pipeline.WithPromptDump(cfg.LLM.DumpPrompt))
		}
	}

	p := pipeline.New(eng, out, opts...)
	report, runErr := p.Run(cmd.Context(), input)
	closeErr := p.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("close outputs: %w", closeErr)
	}
	logger.Info("triage complete",
		"events", len(report.Events),
		"boot_blocking_event_id", report.BootBlockingEventID(),
		"llm_enabled", report.LLMEnabled,
	)
	return nil
}

// buildOutput assembles the report destination plus any secondary sinks.
// The primary report output always comes first.
func buildOutput(cfg config.Config, mode output.Mode, stdoutW io.Writer, logger *slog.Logger) (output.Output, error) {
	var sinks []multi.Sink
	if cfg.Output.Path != "" {
		sinks = append(sinks, multi.Sink{Name: "report", Output: file.NewReport(cfg.Output.Path, mode, cfg.Output.Pretty)})
	} else {
		sinks = append(sinks, multi.Sink{Name: "stdout", Output: stdout.NewWriter(stdoutW, mode, cfg.Output.Pretty)})
	}

	if cfg.Output.EvidenceJSONL != "" {
		ev, err := file.New(cfg.Output.EvidenceJSONL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, multi.Sink{Name: "evidence", Output: ev})
	}

	if cfg.Output.WebhookURL != "" {
		sinks = append(sinks, multi.Sink{Name: "webhook", Output: webhook.New(cfg.Output.WebhookURL,
			webhook.WithMode(mode),
			webhook.WithHeaders(cfg.Output.WebhookHeader),
		)})
	}

	if len(sinks) == 1 {
		return sinks[0].Output, nil
	}
	return multi.New(logger, sinks...), nil
}
