package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"ember/internal/object"
	"ember/internal/runtime"
	"ember/internal/trace"
)

// runInspectShell opens a readline-backed REPL for poking at a live
// ObjectManager: show an object's type, state and children, check reachability, spawn
// children of root, step the collector, and (if rec is non-nil) replay the
// session's recorded lifecycle events. This is the live counterpart to
// golang-debug's viewcore object-graph commands, aimed at a running
// runtime.Environment instead of a post-mortem core file.
func runInspectShell(env *runtime.Environment, rec *trace.Recorder) error {
	rl, err := readline.New("ember> ")
	if err != nil {
		return fmt.Errorf("inspect: failed to start shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "ember inspect — type 'help' for commands, 'quit' to exit")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			printInspectHelp(rl)
		case "show":
			cmdShow(rl, env, fields)
		case "reachable":
			cmdReachable(rl, env, fields)
		case "spawn":
			cmdSpawn(rl, env, fields)
		case "gc":
			env.Objects.CollectGarbage()
			fmt.Fprintf(rl.Stdout(), "collect_garbage stepped; count=%d\n", env.Objects.Count())
		case "trace":
			cmdTrace(rl, rec, fields)
		default:
			fmt.Fprintf(rl.Stdout(), "unknown command %q (try 'help')\n", fields[0])
		}
	}
}

func printInspectHelp(rl *readline.Instance) {
	fmt.Fprint(rl.Stdout(), `commands:
  show <handle>        print an object's type, state, and children
  reachable <handle>    report the object's GC reachability bit
  spawn <type>          spawn a new child of root with the given type name
  gc                     run one time-sliced collect_garbage step
  trace [n]              print the last n recorded lifecycle events (default 10)
  quit                   leave the shell
`)
}

func parseHandle(s string) (object.Handle, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return object.Handle(n), true
}

func cmdShow(rl *readline.Instance, env *runtime.Environment, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(rl.Stdout(), "usage: show <handle>")
		return
	}
	h, ok := parseHandle(fields[1])
	if !ok {
		fmt.Fprintln(rl.Stdout(), "not a valid handle:", fields[1])
		return
	}
	if !env.Objects.Exists(h) {
		fmt.Fprintf(rl.Stdout(), "0x%x: no such object\n", h)
		return
	}
	obj := env.Objects.Get(h)
	fmt.Fprintf(rl.Stdout(), "handle=0x%x type=%s state=%s killed=%v children=%v\n",
		obj.Handle, obj.TypeName, obj.State, obj.IsKilled(), obj.Children())
}

func cmdReachable(rl *readline.Instance, env *runtime.Environment, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(rl.Stdout(), "usage: reachable <handle>")
		return
	}
	h, ok := parseHandle(fields[1])
	if !ok {
		fmt.Fprintln(rl.Stdout(), "not a valid handle:", fields[1])
		return
	}
	if !env.Objects.Exists(h) {
		fmt.Fprintf(rl.Stdout(), "0x%x: no such object\n", h)
		return
	}
	fmt.Fprintf(rl.Stdout(), "0x%x reachable=%v (bit only meaningful mid-cycle; run 'gc' first)\n",
		h, env.Objects.Get(h).IsReachable())
}

func cmdSpawn(rl *readline.Instance, env *runtime.Environment, fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(rl.Stdout(), "usage: spawn <type-name>")
		return
	}
	h := env.Objects.Spawn(object.RootHandle, fields[1], nil, nil)
	fmt.Fprintf(rl.Stdout(), "spawned 0x%x (%s) under root\n", h, fields[1])
}

func cmdTrace(rl *readline.Instance, rec *trace.Recorder, fields []string) {
	if rec == nil {
		fmt.Fprintln(rl.Stdout(), "no --trace file was opened for this session")
		return
	}
	limit := 10
	if len(fields) >= 2 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			limit = n
		}
	}
	events, err := rec.Events(limit)
	if err != nil {
		fmt.Fprintln(rl.Stdout(), "trace query failed:", err)
		return
	}
	for _, e := range events {
		fmt.Fprintln(rl.Stdout(), trace.Summary(e))
	}
}
