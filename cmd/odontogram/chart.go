package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/odontogram/internal/config"
	"github.com/ehr/odontogram/internal/domain/dentalchart"
	"github.com/ehr/odontogram/internal/platform/canvas"
	"github.com/ehr/odontogram/internal/tui"
)

func tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Edit a patient's chart in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, err := patientFlag(cmd)
			if err != nil {
				return err
			}
			logFile, _ := cmd.Flags().GetString("log-file")
			exportDir, _ := cmd.Flags().GetString("export-dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// The terminal belongs to the editor, so logs go to a file or nowhere.
			logger := zerolog.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger = newLogger(&config.Config{Env: "production", LogLevel: cfg.LogLevel}, f)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.close()

			svc := dentalchart.NewService(store.repo, logger)
			defer svc.Shutdown()
			return tui.Run(ctx, svc, patient, exportDir)
		},
	}
	cmd.Flags().String("patient", "", "Patient ID (UUID)")
	cmd.Flags().String("export-dir", ".", "Directory for PNG exports")
	cmd.Flags().String("log-file", "", "Append JSON logs to this file")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a patient's stored chart as SVG or PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, err := patientFlag(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			scale, _ := cmd.Flags().GetFloat64("scale")
			if format == "" {
				format = formatFromPath(out)
			}
			if format != "svg" && format != "png" {
				return fmt.Errorf("unsupported format %q (svg or png)", format)
			}
			if scale <= 0 || scale > 4 {
				return fmt.Errorf("scale must be in (0, 4], got %g", scale)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.close()

			state, err := store.repo.LoadChart(ctx, patient)
			if err != nil {
				return fmt.Errorf("load chart: %w", err)
			}
			scene := dentalchart.Render(dentalchart.View{State: state, UI: dentalchart.NewUIState()})

			if out == "" || out == "-" {
				return writeScene(cmd.OutOrStdout(), scene, format, scale)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := writeScene(f, scene, format, scale); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info().Str("patient_id", patient.String()).Str("path", out).Msg("chart exported")
			return nil
		},
	}
	cmd.Flags().String("patient", "", "Patient ID (UUID)")
	cmd.Flags().String("format", "", "Output format: svg or png (default from --out extension, else svg)")
	cmd.Flags().String("out", "", "Output file, - or empty for stdout")
	cmd.Flags().Float64("scale", 2, "PNG scale factor")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func patientFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("patient")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid patient id %q: %w", raw, err)
	}
	return id, nil
}

func formatFromPath(path string) string {
	if filepath.Ext(path) == ".png" {
		return "png"
	}
	return "svg"
}

func writeScene(w io.Writer, scene canvas.Scene, format string, scale float64) error {
	if format == "png" {
		opts := canvas.DefaultPNGOptions()
		opts.Scale = scale
		return canvas.EncodePNG(w, scene, opts)
	}
	return canvas.EncodeSVG(w, scene)
}
