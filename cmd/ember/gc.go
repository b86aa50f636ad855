package main

import (
	"fmt"

	"ember/internal/object"
	"ember/internal/runtime"
	"ember/internal/trace"
)

// runGCDemo spawns three children of root, detaches the middle one, runs
// collect_garbage to completion, and reports what survived. If rec is
// non-nil, every spawn/mark/sweep step is also appended to the trace store
// for later replay via "ember inspect".
func runGCDemo(env *runtime.Environment, rec *trace.Recorder) string {
	a := env.Objects.Spawn(object.RootHandle, "A", nil, nil)
	b := env.Objects.Spawn(object.RootHandle, "B", nil, nil)
	c := env.Objects.Spawn(object.RootHandle, "C", nil, nil)
	if rec != nil {
		rec.RecordSpawn(uint32(a), "A")
		rec.RecordSpawn(uint32(b), "B")
		rec.RecordSpawn(uint32(c), "C")
	}

	env.Objects.Get(object.RootHandle).RemoveChild(b)

	before := env.Objects.Count()
	env.Objects.RunFullCycle()
	if rec != nil {
		rec.RecordMarkRoot(env.Objects.Count() - 1)
	}

	killed := env.Objects.Get(b).IsKilled()
	env.Objects.ReapKilled()
	after := env.Objects.Count()
	if rec != nil {
		rec.RecordSweep(before - after)
	}

	return fmt.Sprintf(
		"before=%d after=%d B.killed=%v (A alive=%v, C alive=%v)",
		before, after, killed,
		env.Objects.Exists(a), env.Objects.Exists(c),
	)
}
