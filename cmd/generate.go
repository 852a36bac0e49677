package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datapool-labs/proof-cli/internal/archive"
	"github.com/datapool-labs/proof-cli/internal/chain"
	"github.com/datapool-labs/proof-cli/internal/identity"
	"github.com/datapool-labs/proof-cli/internal/proof"
	"github.com/datapool-labs/proof-cli/internal/schema"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one proof-of-contribution pass over the input directory",
	Long: `Generate expands any uploaded archives in place, validates every
structured document against the pool schema, cross-checks the claimed
profile against the configured identity provider, checks the on-chain
registry for prior contributions by the owner address, and writes the
scored proof report to <output_dir>/results.json.

The command exits 0 whenever a report was written, including reports
with valid=false; only unrecoverable failures (missing input, an
unparseable document) exit non-zero.

Examples:
  # Run with environment configuration
  PROOF_IDENTITY_TOKEN=$TOKEN proof-cli generate

  # Override the input and output locations
  proof-cli generate --input ./uploads --output ./out`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("input", "", "input directory (overrides config)")
	f.String("output", "", "output directory (overrides config)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if in, _ := cmd.Flags().GetString("input"); in != "" {
		cfg.Run.InputDir = in
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Run.OutputDir = out
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "generate"))

	entries, err := os.ReadDir(cfg.Run.InputDir)
	if err != nil {
		return eris.Wrapf(err, "generate: input directory %s", cfg.Run.InputDir)
	}
	if len(entries) == 0 {
		return eris.Errorf("generate: no input files found in %s", cfg.Run.InputDir)
	}

	extracted, err := archive.ExpandAll(cfg.Run.InputDir)
	if err != nil {
		return eris.Wrap(err, "generate: expand archives")
	}
	if len(extracted) > 0 {
		log.Info("generate: expanded archives", zap.Int("files", len(extracted)))
	}

	validator, err := schema.New()
	if err != nil {
		return err
	}

	var provider identity.Provider
	if cfg.Identity.Token != "" {
		provider = identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.Token)
	}

	var registry chain.Registry
	if client, err := chain.NewClient(cfg.Chain.RPCURL, cfg.Pool.ContractAddress); err != nil {
		// Chain reachability is best effort: the run proceeds with
		// duplicate detection disabled.
		log.Warn("generate: chain client unavailable, duplicate detection disabled", zap.Error(err))
	} else {
		registry = client
	}

	engine := proof.New(cfg, validator, provider, registry)
	report, err := engine.Generate(ctx)
	if err != nil {
		return err
	}

	path, err := proof.Write(report, cfg.Run.OutputDir)
	if err != nil {
		return err
	}

	log.Info("generate: proof written",
		zap.String("path", path),
		zap.Bool("valid", report.Valid),
		zap.Float64("score", report.Score),
	)

	return nil
}
