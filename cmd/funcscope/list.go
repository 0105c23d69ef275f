package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maxgio92/funcscope"
	"github.com/maxgio92/funcscope/internal/config"
	"github.com/maxgio92/funcscope/snapshot"
)

var (
	nameColor  = color.New(color.FgCyan, color.Bold)
	exitColor  = color.New(color.FgGreen)
	keepColor  = color.New(color.FgYellow)
	labelColor = color.New(color.Faint)
)

type listOptions struct {
	explain bool
	elfPath string
	rawPath string
	rawBase uint64
	mode    string
	workers int
}

func newListCmd(cfg *config.Config) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list [flags] <snapshot.json|snapshot.msgpack>",
		Short: "List the functions of a module snapshot with their exit blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mode") {
				cfg.Classifier.Mode = opts.mode
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = opts.workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runList(cmd, cfg, &opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.explain, "explain", false, "print the rule deciding each block")
	cmd.Flags().StringVar(&opts.elfPath, "elf", "", "ELF binary whose .text section is decoded")
	cmd.Flags().StringVar(&opts.rawPath, "raw", "", "raw code image decoded with the configured arch")
	cmd.Flags().Uint64Var(&opts.rawBase, "base", 0, "load address of the raw code image")
	cmd.Flags().StringVar(&opts.mode, "mode", config.ModeAuto, "classifier mode (auto|decode|edges)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel workers for exit computation (0=auto)")
	cmd.MarkFlagsMutuallyExclusive("elf", "raw")
	return cmd
}

func runList(cmd *cobra.Command, cfg *config.Config, opts *listOptions, path string) error {
	s, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	m, err := s.Module()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	buildOpts, err := classifierOptions(cfg, opts, m)
	if err != nil {
		return err
	}

	fns, err := funcscope.BuildFunctions(m, buildOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := funcscope.MaterializeExitBlocks(cmd.Context(), fns, cfg.Workers); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, fn := range fns {
		printFunction(out, fn, opts.explain)
	}
	return nil
}

// classifierOptions selects how exit blocks are classified.
func classifierOptions(cfg *config.Config, opts *listOptions, m *funcscope.Module) ([]funcscope.BuildOption, error) {
	if cfg.Classifier.Mode == config.ModeEdges {
		return []funcscope.BuildOption{funcscope.WithEdgeHeuristic()}, nil
	}

	fallback := funcscope.EdgeTerminators{Edges: m.CFG}
	var terms *funcscope.DecodingTerminators
	switch {
	case opts.elfPath != "":
		f, err := os.Open(opts.elfPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ELF binary: %w", err)
		}
		defer f.Close()

		if terms, err = funcscope.NewTerminatorsFromELF(f, fallback); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.elfPath, err)
		}
	case opts.rawPath != "":
		code, err := os.ReadFile(opts.rawPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read code image: %w", err)
		}
		terms, err = funcscope.NewDecodingTerminators(code, opts.rawBase, funcscope.Arch(cfg.Classifier.Arch), fallback)
		if err != nil {
			return nil, err
		}
	case cfg.Classifier.Mode == config.ModeDecode:
		return nil, fmt.Errorf("classifier mode %q needs --elf or --raw", config.ModeDecode)
	default:
		return nil, nil
	}
	return []funcscope.BuildOption{funcscope.WithTerminators(terms)}, nil
}

func printFunction(w io.Writer, fn *funcscope.Function, explain bool) {
	exits := fn.ExitBlocks()

	nameColor.Fprint(w, fn.LongName())
	fmt.Fprintf(w, " %s\n", labelColor.Sprint(fn.ID()))
	fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("entry"), fn.EntryBlocks())
	fmt.Fprintf(w, "  %s  %s\n", labelColor.Sprint("exit"), exitColor.Sprint(exits))
	fmt.Fprintf(w, "  %s %d\n", labelColor.Sprint("blocks"), fn.AllBlocks().Len())

	if !explain {
		return
	}
	for _, b := range fn.AllBlocks().Sorted() {
		rule, exit := fn.Explain(b)
		verdict := keepColor.Sprint("internal")
		if exit {
			verdict = exitColor.Sprint("exit")
		}
		if rule == "" {
			rule = "no rule"
		}
		fmt.Fprintf(w, "    %s %s (%s)\n", b, verdict, rule)
	}
}
