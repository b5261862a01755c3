package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"medscan-backend/internal/reports"
)

func newReportCmd(build serviceBuilder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <image>...",
		Short: "Analyze one or more images and print the reports",
		Long: `Analyze one or more images and print the reports.

Examples:
  analyze report ./chest1.png
  analyze report ./chest1.png ./knee.jpg --out ./reports`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out")

			for _, path := range args {
				if err := reports.ValidateFileName(filepath.Base(path)); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}

			svc, err := build(cmd.Context())
			if err != nil {
				return err
			}

			sessionID := uuid.NewString()
			for _, path := range args {
				rep, err := analyzeFile(cmd, svc, sessionID, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "## %s\n\n%s\n\n", rep.FileName, rep.Body)
				if outDir != "" {
					if err := writeExports(outDir, rep); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", "directory to write .txt and .pdf exports into")
	return cmd
}

func analyzeFile(cmd *cobra.Command, svc *reports.Service, sessionID, path string) (reports.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return reports.Report{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	return svc.AnalyzeUpload(cmd.Context(), sessionID, filepath.Base(path), f)
}

func writeExports(dir string, rep reports.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, format := range []string{reports.FormatText, reports.FormatPDF} {
		d, err := reports.Render(rep, format)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		if err := os.WriteFile(filepath.Join(dir, d.FileName), d.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", d.FileName, err)
		}
	}
	return nil
}
