package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jinjor/flux/src/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRenderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the three X/T pairs into WAV stems",
		Annotations: map[string]string{
			"seconds": "render.seconds",
			"out":     "render.output_dir",
			"seed":    "engine.seed",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			params, err := a.cfg.Engine.Params()
			if err != nil {
				return err
			}
			paths, err := render.RenderStems(ctx, render.Options{
				SampleRate:  a.cfg.Audio.SampleRate,
				Seconds:     a.cfg.Render.Seconds,
				ClockPeriod: a.cfg.Render.ClockPeriod,
				Seed:        a.cfg.Engine.Seed,
				Params:      params,
				OutputDir:   a.cfg.Render.OutputDir,
			}, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("Successfully rendered stems.", zap.Strings("paths", paths))
			return nil
		},
	}
	cmd.Flags().Float64("seconds", 10, "length of each stem")
	cmd.Flags().String("out", ".", "output directory")
	cmd.Flags().Uint64("seed", 1, "random seed")
	return cmd
}
