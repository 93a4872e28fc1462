package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/pipeline"
)

var (
	compareCompanies []string
	compareFiles     []string
	compareTickers   []string
	compareNoSave    bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare 2-4 companies side by side",
	Long:  "Analyzes one document per company concurrently, computes per-metric deltas, and prints the comparison as JSON. Repeat --company and --file once per company, in the same order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(compareCompanies) != len(compareFiles) {
			return eris.Errorf("got %d --company flags but %d --file flags", len(compareCompanies), len(compareFiles))
		}
		if len(compareTickers) > 0 && len(compareTickers) != len(compareCompanies) {
			return eris.Errorf("got %d --ticker flags but %d companies, pass one per company or none", len(compareTickers), len(compareCompanies))
		}

		reqs := make([]pipeline.AnalyzeRequest, len(compareCompanies))
		for i, company := range compareCompanies {
			text, err := readDocument(ctx, compareFiles[i])
			if err != nil {
				return err
			}
			reqs[i] = pipeline.AnalyzeRequest{Company: company, Text: text}
			if len(compareTickers) > 0 {
				reqs[i].Ticker = compareTickers[i]
			}
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		comparison, err := env.Analyzer.CompareCompanies(ctx, reqs)
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		if !compareNoSave {
			if err := env.Store.SaveComparison(ctx, comparison); err != nil {
				return eris.Wrap(err, "save comparison")
			}
		}

		zap.L().Info("comparison complete",
			zap.String("id", comparison.ID),
			zap.Int("companies", len(comparison.Analyses)),
			zap.Int("deltas", len(comparison.Deltas)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(comparison)
	},
}

func init() {
	compareCmd.Flags().StringArrayVar(&compareCompanies, "company", nil, "company name, repeat once per company")
	compareCmd.Flags().StringArrayVar(&compareFiles, "file", nil, "document path, repeat once per company in the same order")
	compareCmd.Flags().StringArrayVar(&compareTickers, "ticker", nil, "ticker symbol, repeat once per company (optional)")
	compareCmd.Flags().BoolVar(&compareNoSave, "no-save", false, "skip persisting the comparison")
	_ = compareCmd.MarkFlagRequired("company")
	_ = compareCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(compareCmd)
}
