package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maxgio92/funcscope"
	"github.com/maxgio92/funcscope/internal/config"
)

// newRootCmd builds the command tree. The loaded configuration is shared
// with subcommands through cfg.
func newRootCmd() *cobra.Command {
	var (
		cfg        = config.Default()
		configPath string
		noColor    bool
	)

	rootCmd := &cobra.Command{
		Use:           "funcscope",
		Short:         "Function entry, member and exit blocks over a recovered CFG",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded

			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			funcscope.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = funcscope.Logger().Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newListCmd(cfg))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
