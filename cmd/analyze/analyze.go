package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/listing-analyzer/internal/bootstrap"
	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/usecase"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze ADDRESS",
	Short: "Analyze a property and print sections as they arrive",
	Long: `Streams an analysis for ADDRESS and prints each section as soon as the
backend completes it. When the stream fails the one-shot endpoint is used
instead (disable with ANALYSIS_FALLBACK_ENABLED=false).

Examples:
  analyze "12 Elm St, Springfield"
  analyze "12 Elm St" --title "Elm cottage" --price 425000 --bedrooms 3
  analyze "12 Elm St" --async
  analyze "12 Elm St" --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("title", "", "property title (default: the address)")
	f.Float64("price", 0, "asking price")
	f.Int("bedrooms", 0, "number of bedrooms")
	f.Float64("bathrooms", 0, "number of bathrooms")
	f.Int("square-feet", 0, "interior square feet")
	f.String("description", "", "listing description")
	f.Bool("once", false, "skip streaming and call the one-shot endpoint")
	f.Bool("async", false, "run as a background job and follow its progress")
	f.Bool("save", false, "save the analysis after it completes")
	rootCmd.AddCommand(analyzeCmd)
}

func analysisRequest(cmd *cobra.Command, address string) domain.AnalysisRequest {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	req := domain.AnalysisRequest{PropertyAddress: address, PropertyTitle: title}

	manual := &domain.ManualPropertyData{}
	changed := false
	if f.Changed("price") {
		v, _ := f.GetFloat64("price")
		manual.Price, changed = &v, true
	}
	if f.Changed("bedrooms") {
		v, _ := f.GetInt("bedrooms")
		manual.Bedrooms, changed = &v, true
	}
	if f.Changed("bathrooms") {
		v, _ := f.GetFloat64("bathrooms")
		manual.Bathrooms, changed = &v, true
	}
	if f.Changed("square-feet") {
		v, _ := f.GetInt("square-feet")
		manual.SquareFeet, changed = &v, true
	}
	if v, _ := f.GetString("description"); v != "" {
		manual.ListingDescription, changed = v, true
	}
	if changed {
		req.ManualData = manual
	}
	return req
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := sessionFromFlags(cmd)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	req := analysisRequest(cmd, args[0])
	once, _ := cmd.Flags().GetBool("once")
	async, _ := cmd.Flags().GetBool("async")
	save, _ := cmd.Flags().GetBool("save")

	var analysis *domain.Analysis
	switch {
	case async:
		jobID, err := app.JobUC.StartJob(ctx, &session, req)
		if err != nil {
			return err
		}
		printInfo(out, "Started job %s", jobID)
		state, err := app.JobUC.WatchJob(ctx, &session, jobID, func(update domain.JobState) {
			printInfo(out, "[%3d%%] %s %s", update.Progress, update.Status, update.CurrentSection)
		})
		if err != nil {
			return err
		}
		if state.Error != "" {
			return fmt.Errorf("job %s failed: %s", jobID, state.Error)
		}
		printSuccess(out, "Job %s %s", jobID, state.Status)
		return nil
	case once:
		analysis, err = app.AnalysisUC.AnalyzeOnce(ctx, &session, req)
		if err != nil {
			return err
		}
		newProgressPrinter(out).Print(usecase.ReplayAnalysis(domain.NewStreamingState(), *analysis))
	default:
		printer := newProgressPrinter(out)
		state, err := app.AnalysisUC.Start(ctx, &session, req, printer.Print)
		if err != nil {
			return err
		}
		analysis, err = completedAnalysis(state)
		if err != nil {
			return err
		}
	}

	printSuccess(out, "Analysis complete")
	if !save {
		return nil
	}
	saved, err := app.SavedUC.Save(ctx, session.UserID, req.PropertyAddress, req.PropertyTitle, analysis)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	printSuccess(out, "Saved as %s", saved.ID)
	return nil
}

// completedAnalysis returns the finalized analysis of a terminal state, or an
// error when the run failed or stopped early. Only completed runs are saved.
func completedAnalysis(state domain.StreamingState) (*domain.Analysis, error) {
	if state.Error != "" {
		return nil, fmt.Errorf("analysis failed: %s", state.Error)
	}
	if !state.IsComplete {
		return nil, errors.New("analysis did not complete")
	}
	result := state.ToAnalysis()
	return &result, nil
}
