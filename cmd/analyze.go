package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crestline-labs/fincompare/internal/ocr"
	"github.com/crestline-labs/fincompare/internal/pipeline"
)

var (
	analyzeCompany string
	analyzeFile    string
	analyzeTicker  string
	analyzeNoSave  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single financial document",
	Long:  "Extracts metrics from a document, derives ratios, and prints the analysis as JSON. Pass --file - to read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := readDocument(ctx, analyzeFile)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Analyzer.Analyze(ctx, pipeline.AnalyzeRequest{
			Company: analyzeCompany,
			Text:    text,
			Ticker:  analyzeTicker,
		})
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if !analyzeNoSave {
			if err := env.Store.SaveAnalysis(ctx, result); err != nil {
				return eris.Wrap(err, "save analysis")
			}
		}

		zap.L().Info("analysis complete",
			zap.String("id", result.ID),
			zap.String("company", result.Company),
			zap.String("extractor", result.Extractor),
			zap.Float64("confidence", result.Confidence),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// readDocument loads document text from a file path, or stdin when path
// is "-". PDF files go through the configured OCR extractor.
func readDocument(ctx context.Context, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return "", err
		}
		return extractor.ExtractText(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, "read document")
	}
	return string(data), nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "company name the document belongs to (required)")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to the document text, or - for stdin (required)")
	analyzeCmd.Flags().StringVar(&analyzeTicker, "ticker", "", "ticker symbol for a market stock price lookup")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "skip persisting the analysis")
	_ = analyzeCmd.MarkFlagRequired("company")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}
