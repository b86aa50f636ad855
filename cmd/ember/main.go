// Command ember is a small embedding demo and live inspector for the
// runtime core: it hand-assembles a handful of end-to-end scenarios
// (there is no lexer/parser wired into this binary, so programs are
// built directly against internal/program.Builder, the same way the
// original runtime's own main.c demo predated its parser), runs the
// incremental garbage collector to completion, and opens a readline shell
// for poking at a live object graph.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/object"
	"ember/internal/runtime"
	"ember/internal/trace"
)

var tracePath string

func newEnvironment() (*runtime.Environment, *runtime.Interpreter) {
	env := runtime.NewEnvironment()
	env.Objects.Spawn(object.NullHandle, "Application", nil, nil)
	return env, runtime.New(env)
}

func openTrace() (*trace.Recorder, error) {
	if tracePath == "" {
		return nil, nil
	}
	return trace.Open(tracePath)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario]",
		Short: "run one or all hand-assembled demo scenarios",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, ip := newEnvironment()

			targets := scenarios
			if len(args) == 1 {
				targets = nil
				for _, s := range scenarios {
					if s.name == args[0] {
						targets = append(targets, s)
					}
				}
				if len(targets) == 0 {
					return fmt.Errorf("run: unknown scenario %q", args[0])
				}
			}

			for _, s := range targets {
				fmt.Printf("%-10s %s\n", s.name, s.description)
				fmt.Printf("  -> %s\n", s.run(env, ip))
			}
			return nil
		},
	}
}

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "run the incremental mark-and-sweep demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := newEnvironment()

			rec, err := openTrace()
			if err != nil {
				return err
			}
			if rec != nil {
				defer rec.Close()
			}

			fmt.Println(runGCDemo(env, rec))
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "open an interactive shell over a live object graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, _ := newEnvironment()

			rec, err := openTrace()
			if err != nil {
				return err
			}
			if rec != nil {
				defer rec.Close()
			}

			return runInspectShell(env, rec)
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:   "ember",
		Short: "embedding demo and inspector for the ember runtime core",
	}
	root.PersistentFlags().StringVar(&tracePath, "trace", "", "record lifecycle/GC events to this SQLite file")

	root.AddCommand(newRunCmd(), newGCCmd(), newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
