package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/internal/codegen"
	"ember/internal/object"
	"ember/internal/program"
	"ember/internal/value"
)

func numOperand(f float32) int32 {
	return int32(math.Float32bits(f))
}

func newTestEnv(t *testing.T) (*Environment, *Interpreter) {
	t.Helper()
	env := NewEnvironment()
	env.Objects.Spawn(object.NullHandle, "Application", nil, nil)
	return env, New(env)
}

// TestCountedLoop hand-assembles: T0=0, T1=10, loop: INC T0, CMP T0,T1, JL
// loop. Running it should leave the shared stack empty; T0's final value
// is observed by reading the register the program happens to return (RET
// with no MOVN leaves whatever was last placed in T0 as the visible
// result, here 10 itself).
func TestCountedLoop(t *testing.T) {
	b := program.NewBuilder()
	loop := b.NewLabel()
	b.Emit(program.OpXor, codegen.T0, codegen.T0)
	b.Emit(program.OpMovf, codegen.T1, numOperand(10))
	b.PlaceLabel(loop)
	b.Emit(program.OpInc, codegen.T0, 0)
	b.Emit(program.OpCmp, codegen.T0, codegen.T1)
	b.EmitJump(program.OpJl, 0, loop)
	b.Emit(program.OpRet, 0, 0)
	p := b.Finalize(0)

	_, ip := newTestEnv(t)
	result := ip.Run(p, object.RootHandle)

	assert.Equal(t, float32(10), result.AsNumber())
	assert.True(t, ip.Env.Stack.Empty())
}

// TestFibonacciViaStack: push 0, push 1, repeat 10 times {pop b, pop a,
// c=a+b, push b, push c}. Top of stack afterward is 89. DEC does not
// itself set a consumable flag in this opcode contract (see DESIGN.md),
// so the loop test is an explicit TEST.
func TestFibonacciViaStack(t *testing.T) {
	b := program.NewBuilder()
	loop := b.NewLabel()

	b.Emit(program.OpXor, codegen.T0, codegen.T0)
	b.Emit(program.OpPush, codegen.T0, 0) // push 0
	b.Emit(program.OpInc, codegen.T0, 0)
	b.Emit(program.OpPush, codegen.T0, 0) // push 1
	b.Emit(program.OpMovf, codegen.T2, numOperand(10))
	b.PlaceLabel(loop)
	b.Emit(program.OpPop, codegen.T1, 0)          // b
	b.Emit(program.OpPop, codegen.T0, 0)          // a
	b.Emit(program.OpAdd, codegen.T0, codegen.T1) // c = a + b
	b.Emit(program.OpPush, codegen.T1, 0)         // push b
	b.Emit(program.OpPush, codegen.T0, 0)         // push c
	b.Emit(program.OpDec, codegen.T2, 0)
	b.Emit(program.OpTest, codegen.T2, codegen.T2)
	b.EmitJump(program.OpJne, 0, loop)
	b.Emit(program.OpRet, 0, 0)
	p := b.Finalize(0)

	env, ip := newTestEnv(t)
	ip.Run(p, object.RootHandle)

	require.False(t, env.Stack.Empty())
	assert.Equal(t, float32(89), env.Stack.Pop().AsNumber())
}

// TestStringConcatenation covers CAT on two strings and a string+number.
func TestStringConcatenation(t *testing.T) {
	_, ip := newTestEnv(t)

	b := program.NewBuilder()
	b.Emit(program.OpMovs, codegen.T0, b.Intern("hello "))
	b.Emit(program.OpMovs, codegen.T1, b.Intern("world"))
	b.Emit(program.OpCat, codegen.T0, codegen.T1)
	b.Emit(program.OpRet, 0, 0)
	p := b.Finalize(0)

	assert.Equal(t, "hello world", ip.Run(p, object.RootHandle).AsString())

	b2 := program.NewBuilder()
	b2.Emit(program.OpMovs, codegen.T0, b2.Intern("n="))
	b2.Emit(program.OpMovf, codegen.T1, numOperand(3))
	b2.Emit(program.OpCat, codegen.T0, codegen.T1)
	b2.Emit(program.OpRet, 0, 0)
	p2 := b2.Finalize(0)

	assert.Equal(t, "n=3", ip.Run(p2, object.RootHandle).AsString())
}

// TestTypeofLadder drives codegen's typeof ladder against every variant.
func TestTypeofLadder(t *testing.T) {
	_, ip := newTestEnv(t)

	cases := []struct {
		setup func(b *program.Builder)
		want  string
	}{
		{func(b *program.Builder) { b.Emit(program.OpMovn, codegen.T0, 0) }, "null"},
		{func(b *program.Builder) { b.Emit(program.OpMovf, codegen.T0, numOperand(1.5)) }, "number"},
		{func(b *program.Builder) { b.Emit(program.OpMovs, codegen.T0, b.Intern("x")) }, "string"},
		{func(b *program.Builder) { b.Emit(program.OpMovb, codegen.T0, 1) }, "boolean"},
		{func(b *program.Builder) { b.Emit(program.OpMovc, codegen.T0, 0) }, "object"},
	}

	for _, c := range cases {
		b := program.NewBuilder()
		c.setup(b)
		g := &codegen.Generator{B: b}
		g.EmitTypeof()
		b.Emit(program.OpRet, 0, 0)
		p := b.Finalize(0)

		assert.Equal(t, c.want, ip.Run(p, object.RootHandle).AsString())
	}
}

// TestGCSweepThreeChildren spawns A, B, C as root's children, detaches B,
// runs collect_garbage to completion, and expects B killed, A and C alive,
// and the manager's count down by exactly one after reaping.
func TestGCSweepThreeChildren(t *testing.T) {
	env, _ := newTestEnv(t)

	a := env.Objects.Spawn(object.RootHandle, "A", nil, nil)
	bHandle := env.Objects.Spawn(object.RootHandle, "B", nil, nil)
	c := env.Objects.Spawn(object.RootHandle, "C", nil, nil)

	env.Objects.Get(object.RootHandle).RemoveChild(bHandle)

	before := env.Objects.Count()
	env.Objects.RunFullCycle()

	assert.True(t, env.Objects.Get(bHandle).IsKilled())
	assert.False(t, env.Objects.Get(a).IsKilled())
	assert.False(t, env.Objects.Get(c).IsKilled())

	env.Objects.ReapKilled()
	assert.Equal(t, before-1, env.Objects.Count())
}

// TestRecursiveFactorial runs a hand-assembled factorial(5) dispatched
// through the program pool's CALL and expects 120 with an empty stack
// afterward.
func TestRecursiveFactorial(t *testing.T) {
	env, ip := newTestEnv(t)

	b := program.NewBuilder()
	header := b.Emit(program.OpPushn, 0, 0)
	elseLabel := b.NewLabel()

	b.Emit(program.OpLoadLocal, codegen.T0, -1) // n (argument 0 of 1)
	b.Emit(program.OpMovf, codegen.T1, numOperand(1))
	b.Emit(program.OpCmp, codegen.T0, codegen.T1)
	b.EmitJump(program.OpJg, 0, elseLabel) // n > 1 ? compute : return 1
	b.Emit(program.OpMovf, codegen.T0, numOperand(1))
	b.Emit(program.OpRet, 0, 0)

	b.PlaceLabel(elseLabel)
	b.Emit(program.OpLoadLocal, codegen.T0, -1)
	b.Emit(program.OpPush, codegen.T0, 0) // save n
	b.Emit(program.OpLoadLocal, codegen.T0, -1)
	b.Emit(program.OpMovf, codegen.T1, numOperand(1))
	b.Emit(program.OpSub, codegen.T0, codegen.T1) // n - 1
	b.Emit(program.OpPush, codegen.T0, 0)         // argument for the recursive call
	b.Emit(program.OpCall, b.Intern("call"), 1)
	b.Emit(program.OpPopn, 1, 0)
	b.Emit(program.OpPop, codegen.T1, 0) // n
	b.Emit(program.OpMul, codegen.T0, codegen.T1)
	b.Emit(program.OpRet, 0, 0)

	b.PatchB(header, 0) // this function declares no locals beyond its argument
	factorial := b.Finalize(1)

	env.Pool.Register("Math", "call", factorial)
	math := env.Objects.Spawn(object.RootHandle, "Math", nil, nil)

	result := ip.CallMethod(math, "call", []value.Value{value.Number(5)})

	assert.Equal(t, float32(120), result.AsNumber())
	assert.True(t, env.Stack.Empty())
}
