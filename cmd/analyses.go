package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crestline-labs/fincompare/internal/model"
	"github.com/crestline-labs/fincompare/internal/store"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect stored analyses",
	Long:  "Commands for listing and viewing stored document analyses.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		analyses, err := st.ListAnalyses(ctx, store.AnalysisFilter{
			Company: company,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysesList(os.Stdout, analyses)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		analysis, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	analysesListCmd.Flags().String("company", "", "filter by company name")
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	rootCmd.AddCommand(analysesCmd)
}

// formatAnalysesList writes a tabular list of analyses to w.
func formatAnalysesList(out io.Writer, analyses []model.AnalysisResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tEXTRACTOR\tMETRICS\tCONFIDENCE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t---------\t-------\t----------\t-------")

	for _, a := range analyses {
		company := a.Company
		if len(company) > 30 {
			company = company[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			truncateID(a.ID),
			company,
			a.Extractor,
			len(a.Metrics),
			a.Confidence,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
