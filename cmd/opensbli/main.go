// Command opensbli expands tensor equations written in Einstein notation
// into per-component scalar equations.
//
// Usage:
//
//	opensbli expand problem.json
//	opensbli repl --ndim 2
//
// The problem file carries the equations, substitutions, formulas and
// configuration as JSON; see testdata in the repository for the layout.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	opensbli "github.com/jresch/opensbli"
)

// problemFile is the on-disk problem description.
type problemFile struct {
	Equations        []string `json:"equations"`
	Substitutions    []string `json:"substitutions"`
	NDim             int      `json:"ndim"`
	Constants        []string `json:"constants"`
	CoordinateSymbol string   `json:"coordinate_symbol"`
	Metrics          []bool   `json:"metrics"`
	Formulas         []string `json:"formulas"`
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	eqColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed, color.Bold)
)

func main() {
	var verbose bool
	var latex bool

	root := &cobra.Command{
		Use:           "opensbli",
		Short:         "Expand Einstein-notation tensor equations to scalar components",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	expandCmd := &cobra.Command{
		Use:   "expand <problem.json>",
		Short: "Expand every equation of a problem file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(args[0], latex)
		},
	}
	expandCmd.Flags().BoolVar(&latex, "latex", false, "render expanded equations as LaTeX")
	root.AddCommand(expandCmd)

	var ndim int
	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactively expand single equations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(ndim)
		},
	}
	replCmd.Flags().IntVar(&ndim, "ndim", 3, "number of spatial dimensions")
	root.AddCommand(replCmd)

	if err := root.Execute(); err != nil {
		errColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runExpand(path string, latex bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pf problemFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Debug("loaded problem", "path", path, "equations", len(pf.Equations), "ndim", pf.NDim)

	prob, err := opensbli.NewProblem(pf.Equations, pf.Substitutions, pf.NDim,
		pf.Constants, pf.CoordinateSymbol, pf.Metrics, pf.Formulas)
	if err != nil {
		return err
	}
	eqs, formulas, err := prob.Expand()
	if err != nil {
		return err
	}

	printGroup := func(title string, group []*opensbli.Equation) {
		if len(group) == 0 {
			return
		}
		headerColor.Println(title)
		for _, eq := range group {
			fmt.Println("  " + eq.Original)
			for _, c := range eq.Expanded {
				if latex {
					eqColor.Println("    " + c.LaTeX())
				} else {
					eqColor.Println("    " + c.String())
				}
			}
		}
	}
	printGroup("Equations", eqs)
	printGroup("Formulas", formulas)
	return nil
}

func runREPL(ndim int) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("equation expander, ndim=%d. Enter Eq(lhs, rhs) lines; 'ndim N' to change; 'quit' to exit.\n", ndim)
	var constants []string
	for {
		input, err := line.Prompt(">> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case input == "quit" || input == "exit":
			return nil
		case strings.HasPrefix(input, "ndim "):
			if _, err := fmt.Sscanf(input, "ndim %d", &ndim); err != nil {
				errColor.Println("usage: ndim N")
			}
			continue
		case strings.HasPrefix(input, "const "):
			constants = append(constants, strings.Fields(input)[1:]...)
			continue
		}
		line.AppendHistory(input)

		prob, err := opensbli.NewProblem([]string{input}, nil, ndim, constants, "x", []bool{false}, nil)
		if err != nil {
			errColor.Println(err)
			continue
		}
		eqs, _, err := prob.Expand()
		if err != nil {
			errColor.Println(err)
			continue
		}
		for _, c := range eqs[0].Expanded {
			eqColor.Println(c.String())
		}
	}
}
