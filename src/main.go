package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/jinjor/flux/src/config"
	"github.com/jinjor/flux/src/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags and config are read.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		observability.GetLogger().Error("command failed", zap.Error(err))
		observability.Sync()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgFile string
	root := &cobra.Command{
		Use:           "flux",
		Short:         "flux turns a clock into random voltages and gates.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(cmd, v); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			a.cfg = cfg
			a.logger = observability.GetLogger()
			a.logger.Info("Starting flux", zap.String("command", cmd.Name()), zap.Int("num_cpu", runtime.NumCPU()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./flux.yaml)")
	root.AddCommand(newPlayCmd(a), newRenderCmd(a))
	return root
}

// bindFlags binds the flags listed in the command annotations (flag name to
// config key) so that flags given on the command line win over every other
// source.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range cmd.Annotations {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
