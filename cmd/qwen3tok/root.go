package main

import (
	"flag"
	"strconv"

	"github.com/gomlx/qwen3-tokenizer/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "qwen3tok",
		Short:         "Qwen3 tokenizer command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Flags:      cmd.Flags(),
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			return setupLogging(loaded.Log.Verbosity)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newPrepareCmd())
	cmd.AddCommand(newInfoCmd())

	return cmd
}

// setupLogging sets klog's verbosity (its -v flag).
func setupLogging(verbosity int) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if err := fs.Set("v", strconv.Itoa(verbosity)); err != nil {
		return errors.Wrapf(err, "invalid verbosity %d", verbosity)
	}
	return nil
}
