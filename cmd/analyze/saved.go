package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/listing-analyzer/internal/bootstrap"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved analyses",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses, newest first",
	RunE:  runSavedList,
}

var savedStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show saved analysis statistics",
	RunE:  runSavedStats,
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedDelete,
}

var savedExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved analyses as PDF or XLSX",
	Long: `Writes a PDF report for one saved analysis or a workbook of all of them.

Examples:
  saved export --id 3f2c... --output report.pdf
  saved export --format xlsx --output analyses.xlsx`,
	RunE: runSavedExport,
}

func init() {
	savedListCmd.Flags().String("search", "", "only show analyses whose title or input contains this text")

	f := savedExportCmd.Flags()
	f.String("format", "pdf", "export format: pdf or xlsx")
	f.String("id", "", "saved analysis id (pdf only)")
	f.String("output", "", "output file (default: generated name in the current directory)")

	savedCmd.AddCommand(savedListCmd, savedStatsCmd, savedDeleteCmd, savedExportCmd)
	rootCmd.AddCommand(savedCmd)
}

func runSavedList(cmd *cobra.Command, _ []string) error {
	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	term, _ := cmd.Flags().GetString("search")
	items, err := app.SavedUC.Search(cmd.Context(), session.UserID, term)
	if err != nil {
		return err
	}
	printSavedTable(cmd.OutOrStdout(), items)
	return nil
}

func runSavedStats(cmd *cobra.Command, _ []string) error {
	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	stats, err := app.SavedUC.Stats(cmd.Context(), session.UserID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printTitle(out, "Saved analyses")
	_, _ = fmt.Fprintf(out, "  Total:       %d\n", stats.Total)
	_, _ = fmt.Fprintf(out, "  This week:   %d\n", stats.ThisWeek)
	_, _ = fmt.Fprintf(out, "  Average:     %s\n", formatScore(stats.AverageScore))
	_, _ = fmt.Fprintf(out, "  High scores: %d\n", stats.HighScoreCount)
	return nil
}

func runSavedDelete(cmd *cobra.Command, args []string) error {
	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if err := app.SavedUC.Delete(cmd.Context(), session.UserID, args[0]); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Deleted %s", args[0])
	return nil
}

func runSavedExport(cmd *cobra.Command, _ []string) error {
	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	format, _ := f.GetString("format")
	id, _ := f.GetString("id")
	output, _ := f.GetString("output")
	if format != "pdf" && format != "xlsx" {
		return fmt.Errorf("unsupported format %q", format)
	}
	if format == "pdf" && id == "" {
		return fmt.Errorf("--id is required for pdf export")
	}

	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	tmp, err := os.CreateTemp(".", ".listing-export-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	name := "saved-analyses.xlsx"
	if format == "pdf" {
		name, err = app.ExportUC.WritePDF(cmd.Context(), session.UserID, id, tmp)
	} else {
		err = app.ExportUC.WriteWorkbook(cmd.Context(), session.UserID, tmp)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if output == "" {
		output = name
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess(cmd.OutOrStdout(), "Wrote %s", output)
	return nil
}
