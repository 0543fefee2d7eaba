package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/listing-analyzer/internal/core/usecase"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/analysisapi"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show which provider and model the analysis backend uses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := analysisapi.New(cfg.AnalysisAPIURL, nil, nil, analysisapi.Options{Timeout: cfg.AnalysisTimeout})
		info := usecase.NewModelInfoUseCase(client, cfg.Environment).ModelInfo(cmd.Context())

		out := cmd.OutOrStdout()
		if info.Provider == "unknown" {
			printWarning(out, "Analysis backend did not report its model")
		}
		_, _ = fmt.Fprintf(out, "provider:    %s\nmodel:       %s\nenvironment: %s\n", info.Provider, info.Model, info.Environment)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
}
