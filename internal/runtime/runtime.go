// Package runtime wires the Program Pool, Stack, and Object Manager into a
// running environment and implements the instruction dispatch loop.
package runtime

import (
	"math"

	"ember/internal/errors"
	"ember/internal/heap"
	"ember/internal/object"
	"ember/internal/objectmanager"
	"ember/internal/pool"
	"ember/internal/program"
	"ember/internal/stack"
	"ember/internal/value"
)

// Environment bundles the three pieces of shared state every running
// program sees: the program pool it dispatches CALL against, the shared
// operand/call stack, and the object manager owning every live object.
type Environment struct {
	Pool    *pool.Pool
	Stack   *stack.Stack
	Objects *objectmanager.Manager
}

// NewEnvironment creates an empty environment with a fresh stack bound to
// a fresh object manager (so the manager's GC root-scan can see it).
func NewEnvironment() *Environment {
	s := stack.New()
	return &Environment{
		Pool:    pool.New(),
		Stack:   s,
		Objects: objectmanager.New(s),
	}
}

// Interpreter executes programs against an Environment. A single-threaded
// cooperative scheduling model applies: Run is never re-entered from
// another goroutine, and CALL is a plain recursive invocation of Run, so
// CALL always completes before the next caller instruction executes.
type Interpreter struct {
	Env *Environment
}

// New creates an interpreter bound to env.
func New(env *Environment) *Interpreter {
	return &Interpreter{Env: env}
}

func boolFlag(b bool) int {
	if b {
		return 0
	}
	return 1
}

// Run executes p with `this` bound as the current object, returning the
// value left in T0 when the program terminates (by RET or by MOVT Ti,-1).
// Every invocation gets its own fresh T0..T3 scratch registers.
func (ip *Interpreter) Run(p *program.Program, this object.Handle) value.Value {
	var regs [4]value.Value
	flag := 0
	frameOpened := false
	env := ip.Env

	finish := func() value.Value {
		if frameOpened {
			env.Stack.PopEnv()
		}
		return regs[0]
	}

	pc := 0
	for pc < len(p.Code) {
		instr := p.Code[pc]
		switch instr.Op {
		case program.OpNop:
			// no effect at runtime, including the breakpoint-annotation form

		case program.OpMov:
			regs[instr.A] = regs[instr.B]
		case program.OpMovn:
			regs[instr.A] = value.Null
		case program.OpMovb:
			regs[instr.A] = value.Boolean(instr.B != 0)
		case program.OpMovf:
			regs[instr.A] = value.Number(math.Float32frombits(uint32(instr.B)))
		case program.OpMovs:
			regs[instr.A] = value.String(p.String(instr.B))
		case program.OpMovc:
			regs[instr.A] = value.Object(uint32(this))
		case program.OpMovr:
			regs[instr.A] = value.Object(uint32(object.RootHandle))
		case program.OpMovt:
			if instr.B == -1 {
				env.Objects.Get(this).State = regs[instr.A].AsString()
				return finish()
			}
			regs[instr.A] = value.String(env.Objects.Get(this).State)

		case program.OpAdd:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() + regs[instr.B].AsNumber())
		case program.OpSub:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() - regs[instr.B].AsNumber())
		case program.OpMul:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() * regs[instr.B].AsNumber())
		case program.OpDiv:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() / regs[instr.B].AsNumber())
		case program.OpNeg:
			regs[instr.A] = value.Number(-regs[instr.B].AsNumber())
		case program.OpInc:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() + 1)
		case program.OpDec:
			regs[instr.A] = value.Number(regs[instr.A].AsNumber() - 1)
		case program.OpXor:
			regs[instr.A] = value.Number(0)

		case program.OpLnot:
			regs[instr.A] = value.Boolean(!regs[instr.B].AsBoolean())

		case program.OpCat:
			regs[instr.A] = value.Concat(regs[instr.A], regs[instr.B])

		case program.OpPush:
			env.Stack.Push(regs[instr.A])
		case program.OpPop:
			regs[instr.A] = env.Stack.Pop()
		case program.OpPopn:
			for k := int32(0); k < instr.A; k++ {
				env.Stack.Pop()
			}
		case program.OpPushn:
			env.Stack.PushEnv(int(instr.B))
			frameOpened = true
		case program.OpXchg:
			regs[instr.A], regs[instr.B] = regs[instr.B], regs[instr.A]

		case program.OpTchkf:
			flag = boolFlag(regs[instr.A].IsNumber())
		case program.OpTchks:
			flag = boolFlag(regs[instr.A].IsString())
		case program.OpTchko:
			flag = boolFlag(regs[instr.A].IsObject())
		case program.OpTchkb:
			flag = boolFlag(regs[instr.A].IsBoolean())
		case program.OpTchkn:
			flag = boolFlag(regs[instr.A].IsNull())

		case program.OpCmp:
			flag = regs[instr.A].Compare(regs[instr.B])
		case program.OpTest:
			flag = boolFlag(!regs[instr.A].AsBoolean())

		case program.OpJmp:
			pc = int(instr.B)
			continue
		case program.OpJe:
			if flag == 0 {
				pc = int(instr.B)
				continue
			}
		case program.OpJne:
			if flag != 0 {
				pc = int(instr.B)
				continue
			}
		case program.OpJg:
			if flag > 0 {
				pc = int(instr.B)
				continue
			}
		case program.OpJge:
			if flag >= 0 {
				pc = int(instr.B)
				continue
			}
		case program.OpJl:
			if flag < 0 {
				pc = int(instr.B)
				continue
			}
		case program.OpJle:
			if flag <= 0 {
				pc = int(instr.B)
				continue
			}

		case program.OpCall:
			target := this
			if regs[1].IsObject() {
				h, _ := regs[1].ObjectHandle()
				target = object.Handle(h)
			}
			obj := env.Objects.Get(target)
			callee := env.Pool.Lookup(obj.TypeName, p.String(instr.A))
			regs[0] = ip.Run(callee, target)

		case program.OpAloc:
			env.Objects.Get(this).Heap.Malloc()

		case program.OpLoadHeap:
			cell, ok := env.Objects.Get(this).Heap.At(heap.Ptr(instr.B))
			if !ok {
				errors.Fatal("runtime: heap address 0x%x out of range", instr.B)
			}
			regs[instr.A] = *cell
		case program.OpStoreHeap:
			cell, ok := env.Objects.Get(this).Heap.At(heap.Ptr(instr.B))
			if !ok {
				errors.Fatal("runtime: heap address 0x%x out of range", instr.B)
			}
			*cell = regs[instr.A]

		case program.OpLoadLocal:
			regs[instr.A] = env.Stack.At(int(instr.B))
		case program.OpStoreLocal:
			env.Stack.Set(int(instr.B), regs[instr.A])

		case program.OpRet:
			return finish()

		default:
			errors.Fatal("runtime: unhandled opcode %s", instr.Op.String())
		}
		pc++
	}
	return finish()
}

// CallMethod pushes args onto the shared stack, invokes the program
// registered for this object's (type, function) pair, and restores the
// stack to its pre-call depth afterward — the embedder-facing equivalent
// of the PUSH.../CALL/POPN sequence a compiled function call site emits.
func (ip *Interpreter) CallMethod(this object.Handle, function string, args []value.Value) value.Value {
	obj := ip.Env.Objects.Get(this)
	for _, a := range args {
		ip.Env.Stack.Push(a)
	}
	prog := ip.Env.Pool.Lookup(obj.TypeName, function)
	result := ip.Run(prog, this)
	for range args {
		ip.Env.Stack.Pop()
	}
	return result
}
