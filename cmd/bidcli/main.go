// Package main provides the bid comparison CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bidlens/backend/internal/domain"
	"github.com/bidlens/backend/internal/infrastructure/bidfile"
	"github.com/bidlens/backend/internal/infrastructure/xlsxreport"
	"github.com/bidlens/backend/internal/usecase"
)

var (
	// Global flags
	outputJSON bool
	verbose    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "bidcli",
	Short: "Bid comparison CLI for construction tender files",
	Long: `bidcli compares construction tender bids offline.

Use this tool to:
- Compare NS3459 XML, xlsx and delimited bid files in one run
- Print provider totals, per-chapter rollups and the winner
- Export the comparison workbook without running the server

All commands support --json for automation.`,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCompareCmd creates the compare subcommand.
func newCompareCmd() *cobra.Command {
	var (
		output   string
		currency string
		workers  int
		noExcel  bool
	)

	cmd := &cobra.Command{
		Use:   "compare <file>...",
		Short: "Compare two or more bid files and export the workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]domain.BidFile, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, domain.BidFile{Name: path, Data: data})
			}

			reader := bidfile.NewReader()
			reader.SetDebug(verbose)

			service := usecase.NewCompareService(reader, usecase.CompareServiceConfig{
				MaxParseWorkers:    workers,
				EnableDebugLogging: verbose,
			})

			result, err := service.Compare(context.Background(), files)
			if err != nil {
				return fmt.Errorf("compare: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			} else {
				printSummary(cmd, result)
			}

			if !noExcel {
				builder := xlsxreport.NewBuilder(currency)
				data, err := builder.BuildWorkbook(result)
				if err != nil {
					return fmt.Errorf("build workbook: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				if !outputJSON {
					fmt.Fprintf(cmd.OutOrStdout(), "\nWorkbook written to %s\n", output)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "bid-comparison.xlsx", "output workbook path")
	cmd.Flags().StringVar(&currency, "currency", "kr", "currency label used in the workbook")
	cmd.Flags().IntVar(&workers, "workers", 4, "max parallel file parsers")
	cmd.Flags().BoolVar(&noExcel, "no-excel", false, "skip the workbook export")

	return cmd
}

// newDetectCmd creates the detect subcommand.
func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Report the detected format of each bid file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				format := bidfile.DetectFormat(path, data)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, format)
			}
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bidcli version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "bidcli v1.0.0")
		},
	}
}

// printSummary renders the run result as aligned text tables.
func printSummary(cmd *cobra.Command, result *domain.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Compared %d providers over %d items\n\n", len(result.Providers), result.Summary.ItemCount)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tTOTAL\tOPTIONS\tZ-SCORE")
	for _, provider := range result.Providers {
		z := "-"
		if result.ZScoresEnabled {
			z = fmt.Sprintf("%.2f", result.Summary.ZScoreTotals[provider])
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n",
			provider,
			result.Summary.Totals[provider],
			result.Summary.OptionTotals[provider],
			z)
	}
	w.Flush()

	fmt.Fprintf(out, "\nWinner: %s (%.2f)\n", result.Summary.Winner.Name, result.Summary.Winner.Total)
	if result.Summary.BestZProvider != "" {
		fmt.Fprintf(out, "Best aggregate z-score: %s\n", result.Summary.BestZProvider)
	}
	if result.Summary.ZScoreNote != "" {
		fmt.Fprintf(out, "Note: %s\n", result.Summary.ZScoreNote)
	}

	printChapters(out, result)

	if len(result.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings:\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "  - %s\n", warning)
		}
	}
}

// printChapters renders the chapter rollup from the result table.
func printChapters(out io.Writer, result *domain.RunResult) {
	if len(result.Chapters.Rows) == 0 {
		return
	}

	fmt.Fprintf(out, "\nChapters:\n")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := make([]string, len(result.Chapters.Columns))
	for i, col := range result.Chapters.Columns {
		header[i] = strings.ToUpper(col)
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, row := range result.Chapters.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case nil:
				cells[i] = "-"
			case float64:
				cells[i] = fmt.Sprintf("%.2f", v)
			default:
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}
