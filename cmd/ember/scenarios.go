package main

import (
	"fmt"
	"math"

	"ember/internal/codegen"
	"ember/internal/object"
	"ember/internal/program"
	"ember/internal/runtime"
	"ember/internal/value"
)

// scenario is one of the end-to-end demonstrations of the runtime core.
// Each builds a program by hand — there is no lexer/parser wired into this
// core, so cmd/ember assembles bytecode directly the way the original
// runtime's own main.c demo did before a front end existed.
type scenario struct {
	name        string
	description string
	run         func(env *runtime.Environment, ip *runtime.Interpreter) string
}

func numOperand(f float32) int32 {
	return int32(math.Float32bits(f))
}

var scenarios = []scenario{
	{
		name:        "loop",
		description: "counted loop: INC/CMP/JL to 10",
		run:         runCountedLoop,
	},
	{
		name:        "fib",
		description: "fibonacci via the operand stack, 10 iterations",
		run:         runFibonacci,
	},
	{
		name:        "concat",
		description: `string concatenation via CAT ("hello "+"world", "n="+3)`,
		run:         runConcat,
	},
	{
		name:        "typeof",
		description: "typeof ladder over all five value kinds",
		run:         runTypeof,
	},
	{
		name:        "factorial",
		description: "recursive factorial(5) dispatched through CALL",
		run:         runFactorial,
	},
}

func runCountedLoop(env *runtime.Environment, ip *runtime.Interpreter) string {
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

	result := ip.Run(p, object.RootHandle)
	return fmt.Sprintf("T0=%v, stack empty=%v", result.AsNumber(), env.Stack.Empty())
}

func runFibonacci(env *runtime.Environment, ip *runtime.Interpreter) string {
	b := program.NewBuilder()
	loop := b.NewLabel()

	b.Emit(program.OpXor, codegen.T0, codegen.T0)
	b.Emit(program.OpPush, codegen.T0, 0) // push 0
	b.Emit(program.OpInc, codegen.T0, 0)
	b.Emit(program.OpPush, codegen.T0, 0) // push 1
	b.Emit(program.OpMovf, codegen.T2, numOperand(10))
	b.PlaceLabel(loop)
	b.Emit(program.OpPop, codegen.T1, 0)
	b.Emit(program.OpPop, codegen.T0, 0)
	b.Emit(program.OpAdd, codegen.T0, codegen.T1)
	b.Emit(program.OpPush, codegen.T1, 0)
	b.Emit(program.OpPush, codegen.T0, 0)
	b.Emit(program.OpDec, codegen.T2, 0)
	b.Emit(program.OpTest, codegen.T2, codegen.T2)
	b.EmitJump(program.OpJne, 0, loop)
	b.Emit(program.OpRet, 0, 0)
	p := b.Finalize(0)

	ip.Run(p, object.RootHandle)
	top := env.Stack.Pop()
	return fmt.Sprintf("top of stack=%v", top.AsNumber())
}

func runConcat(env *runtime.Environment, ip *runtime.Interpreter) string {
	b := program.NewBuilder()
	b.Emit(program.OpMovs, codegen.T0, b.Intern("hello "))
	b.Emit(program.OpMovs, codegen.T1, b.Intern("world"))
	b.Emit(program.OpCat, codegen.T0, codegen.T1)
	b.Emit(program.OpRet, 0, 0)
	p := b.Finalize(0)
	greeting := ip.Run(p, object.RootHandle).AsString()

	b2 := program.NewBuilder()
	b2.Emit(program.OpMovs, codegen.T0, b2.Intern("n="))
	b2.Emit(program.OpMovf, codegen.T1, numOperand(3))
	b2.Emit(program.OpCat, codegen.T0, codegen.T1)
	b2.Emit(program.OpRet, 0, 0)
	p2 := b2.Finalize(0)
	counted := ip.Run(p2, object.RootHandle).AsString()

	return fmt.Sprintf("%q, %q", greeting, counted)
}

func runTypeof(env *runtime.Environment, ip *runtime.Interpreter) string {
	cases := []func(b *program.Builder){
		func(b *program.Builder) { b.Emit(program.OpMovn, codegen.T0, 0) },
		func(b *program.Builder) { b.Emit(program.OpMovf, codegen.T0, numOperand(1.5)) },
		func(b *program.Builder) { b.Emit(program.OpMovs, codegen.T0, b.Intern("x")) },
		func(b *program.Builder) { b.Emit(program.OpMovb, codegen.T0, 1) },
		func(b *program.Builder) { b.Emit(program.OpMovc, codegen.T0, 0) },
	}

	out := ""
	for i, setup := range cases {
		b := program.NewBuilder()
		setup(b)
		g := &codegen.Generator{B: b}
		g.EmitTypeof()
		b.Emit(program.OpRet, 0, 0)
		p := b.Finalize(0)

		if i > 0 {
			out += ", "
		}
		out += ip.Run(p, object.RootHandle).AsString()
	}
	return out
}

func runFactorial(env *runtime.Environment, ip *runtime.Interpreter) string {
	b := program.NewBuilder()
	header := b.Emit(program.OpPushn, 0, 0)
	elseLabel := b.NewLabel()

	b.Emit(program.OpLoadLocal, codegen.T0, -1)
	b.Emit(program.OpMovf, codegen.T1, numOperand(1))
	b.Emit(program.OpCmp, codegen.T0, codegen.T1)
	b.EmitJump(program.OpJg, 0, elseLabel)
	b.Emit(program.OpMovf, codegen.T0, numOperand(1))
	b.Emit(program.OpRet, 0, 0)

	b.PlaceLabel(elseLabel)
	b.Emit(program.OpLoadLocal, codegen.T0, -1)
	b.Emit(program.OpPush, codegen.T0, 0)
	b.Emit(program.OpLoadLocal, codegen.T0, -1)
	b.Emit(program.OpMovf, codegen.T1, numOperand(1))
	b.Emit(program.OpSub, codegen.T0, codegen.T1)
	b.Emit(program.OpPush, codegen.T0, 0)
	b.Emit(program.OpCall, b.Intern("call"), 1)
	b.Emit(program.OpPopn, 1, 0)
	b.Emit(program.OpPop, codegen.T1, 0)
	b.Emit(program.OpMul, codegen.T0, codegen.T1)
	b.Emit(program.OpRet, 0, 0)

	b.PatchB(header, 0)
	factorial := b.Finalize(1)

	env.Pool.Register("Math", "call", factorial)
	math := env.Objects.Spawn(object.RootHandle, "Math", nil, nil)

	result := ip.CallMethod(math, "call", []value.Value{value.Number(5)})
	return fmt.Sprintf("factorial(5)=%v, stack empty=%v", result.AsNumber(), env.Stack.Empty())
}
