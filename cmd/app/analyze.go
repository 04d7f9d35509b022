package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/util"
)

func newAnalyzeCmd(load loader) *cobra.Command {
	var (
		symbol    string
		costBasis float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one symbol and print the recommendation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			analyzer, cleanup, err := di.InitializeAnalyzer(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := analyzer.Analyze(cmd.Context(), symbol, costBasis)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderAnalysis(out, res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "instrument symbol (default from config)")
	cmd.Flags().Float64Var(&costBasis, "cost-basis", 0, "average purchase price; 0 means no position")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw analysis as JSON")
	return cmd
}

func renderAnalysis(w io.Writer, a *models.Analysis) {
	r, rec := a.Result, a.Recommendation

	title := r.Symbol
	if r.DisplayName != "" && r.DisplayName != r.Symbol {
		title = fmt.Sprintf("%s (%s)", r.DisplayName, r.Symbol)
	}
	fmt.Fprintf(w, "%s as of %s\n", title, r.AsOf.Format(util.DateLayout))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"Current price", formatPrice(r.CurrentPrice)})
	table.Append([]string{"Probability of rise", fmt.Sprintf("%.1f%%", r.ProbabilityOfRise*100)})
	table.Append([]string{"Support", formatPrice(r.Support)})
	table.Append([]string{"Resistance", formatPrice(r.Resistance)})
	if rec.ReturnRate != nil {
		table.Append([]string{"Cost basis", formatPrice(rec.CostBasis)})
		table.Append([]string{"Return", fmt.Sprintf("%+.2f%%", *rec.ReturnRate*100)})
	}
	table.Append([]string{"Tier", string(rec.Tier)})
	table.Render()

	fmt.Fprintln(w, rec.Message)
	for _, o := range rec.Overlays {
		fmt.Fprintf(w, "  [%s] %s\n", o.Kind, o.Message)
	}
	if a.Cached {
		fmt.Fprintf(w, "(cached result, model %s, %d training rows)\n", r.Classifier, r.TrainingRows)
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
