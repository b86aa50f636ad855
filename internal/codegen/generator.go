package codegen

import (
	"math"

	"ember/internal/errors"
	"ember/internal/program"
)

// Scratch register indices, matching the four T0..T3 slots every running
// program carries.
const (
	T0 int32 = iota
	T1
	T2
	T3
)

// Generator emits instructions into a program.Builder. Every Emit* method
// corresponds to one grammar production; the parser drives them in order
// as it recognizes constructs, exactly as an external parser would drive a
// semantic-action callback table.
type Generator struct {
	B *program.Builder
}

// New creates a generator over a fresh builder.
func New() *Generator {
	return &Generator{B: program.NewBuilder()}
}

func (g *Generator) emit(op program.Opcode, a, b int32) {
	g.B.Emit(op, a, b)
}

func (g *Generator) jump(op program.Opcode, a int32, target program.Label) {
	g.B.EmitJump(op, a, target)
}

// EmitRead loads the value addressed by name into register dest, resolving
// through sym whether it lives on the current object's heap or in the
// current frame's locals.
func (g *Generator) EmitRead(sym *SymbolTable, name string, dest int32) {
	d, ok := sym.Lookup(name)
	if !ok {
		errors.Fatal("codegen: read of unresolved symbol \"" + name + "\"")
	}
	if d.Kind == storageHeap {
		g.emit(program.OpLoadHeap, dest, d.Addr)
	} else {
		g.emit(program.OpLoadLocal, dest, d.Off)
	}
}

// EmitWrite stores register src into the slot addressed by name.
func (g *Generator) EmitWrite(sym *SymbolTable, name string, src int32) {
	d, ok := sym.Lookup(name)
	if !ok {
		errors.Fatal("codegen: write of unresolved symbol \"" + name + "\"")
	}
	if d.Kind == storageHeap {
		g.emit(program.OpStoreHeap, src, d.Addr)
	} else {
		g.emit(program.OpStoreLocal, src, d.Off)
	}
}

// --- object prologue/epilogue ---

// EmitObjectHeader opens an object's initializer program: a jump over the
// body to a heap-priming footer, immediately followed by the body's entry
// point.
func (g *Generator) EmitObjectHeader() (start, end program.Label) {
	start = g.B.NewLabel()
	end = g.B.NewLabel()
	g.jump(program.OpJmp, 0, end)
	g.B.PlaceLabel(start)
	return start, end
}

// EmitObjectFooter closes the body with RET, then emits the heap-priming
// loop that runs exactly once per missing heap cell before falling through
// to start on first entry: fieldCount is the number of heap-resident
// symbols declared in the object's scope.
func (g *Generator) EmitObjectFooter(start, end program.Label, fieldCount int) {
	aloc := g.B.NewLabel()

	g.emit(program.OpRet, 0, 0)
	g.B.PlaceLabel(end)
	g.emit(program.OpMovf, T2, int32FromFloat(float32(fieldCount)))
	g.B.PlaceLabel(aloc)
	g.emit(program.OpTest, T2, T2)
	g.jump(program.OpJe, 0, start)
	g.emit(program.OpAloc, 0, 0)
	g.emit(program.OpDec, T2, 0)
	g.jump(program.OpJmp, 0, aloc)
}

// --- declarations ---

// EmitVarDecl installs name as a fresh heap symbol at object scope (if not
// already declared) and writes the already-evaluated initializer out of T0
// into it.
func (g *Generator) EmitVarDecl(sym *SymbolTable, name string) {
	if !sym.HasSymbol(name) {
		sym.PutHeapSymbol(name, int32(sym.Count()))
	}
	g.EmitWrite(sym, name, T0)
}

// --- assignment ---

// EmitAssign handles "=", "+=", "-=", "*=", "/=" to a local or parameter.
// The right-hand side must already be evaluated into T0; the result is
// left in T0. arity is the enclosing function's declared parameter count,
// needed to compute a fresh local's frame offset.
func (g *Generator) EmitAssign(sym *SymbolTable, op string, name string, arity int) {
	if !sym.HasParent() {
		errors.Fatal("codegen: invalid attribution to \"" + name + "\" outside a function body")
	}
	if !sym.HasSymbol(name) {
		sym.PutStackSymbol(name, int32(sym.Count()-arity))
	}

	switch op {
	case "=":
		g.EmitWrite(sym, name, T0)
	case "+=":
		cat := g.B.NewLabel()
		end := g.B.NewLabel()
		g.EmitRead(sym, name, T1)
		g.emit(program.OpTchks, T1, 0)
		g.jump(program.OpJe, 0, cat)
		g.emit(program.OpTchks, T0, 0)
		g.jump(program.OpJe, 0, cat)
		g.emit(program.OpAdd, T1, T0)
		g.jump(program.OpJmp, 0, end)
		g.B.PlaceLabel(cat)
		g.emit(program.OpCat, T1, T0)
		g.B.PlaceLabel(end)
		g.EmitWrite(sym, name, T1)
		g.emit(program.OpXchg, T0, T1)
	case "-=":
		g.EmitRead(sym, name, T1)
		g.emit(program.OpSub, T1, T0)
		g.EmitWrite(sym, name, T1)
		g.emit(program.OpXchg, T0, T1)
	case "*=":
		g.EmitRead(sym, name, T1)
		g.emit(program.OpMul, T1, T0)
		g.EmitWrite(sym, name, T1)
		g.emit(program.OpXchg, T0, T1)
	case "/=":
		g.EmitRead(sym, name, T1)
		g.emit(program.OpDiv, T1, T0)
		g.EmitWrite(sym, name, T1)
		g.emit(program.OpXchg, T0, T1)
	default:
		errors.Fatal("codegen: unknown assignment operator " + op)
	}
}

// --- ternary ---

func (g *Generator) EmitTernaryCond() (nope, done program.Label) {
	nope = g.B.NewLabel()
	done = g.B.NewLabel()
	g.emit(program.OpTest, T0, T0)
	g.jump(program.OpJe, 0, nope)
	return nope, done
}

func (g *Generator) EmitTernaryElse(nope, done program.Label) {
	g.jump(program.OpJmp, 0, done)
	g.B.PlaceLabel(nope)
}

func (g *Generator) EmitTernaryEnd(done program.Label) {
	g.B.PlaceLabel(done)
}

// --- short-circuit logic ---

func (g *Generator) EmitLogicalOr() (done program.Label) {
	done = g.B.NewLabel()
	g.emit(program.OpTest, T0, T0)
	g.jump(program.OpJne, 0, done)
	return done
}

func (g *Generator) EmitLogicalOrEnd(done program.Label) {
	g.B.PlaceLabel(done)
}

func (g *Generator) EmitLogicalAnd() (done program.Label) {
	done = g.B.NewLabel()
	g.emit(program.OpTest, T0, T0)
	g.jump(program.OpJe, 0, done)
	return done
}

func (g *Generator) EmitLogicalAndEnd(done program.Label) {
	g.B.PlaceLabel(done)
}

// --- equality / relational ---

// EmitPushLeft saves the left operand of a binary expression (in T0)
// before the right operand is evaluated.
func (g *Generator) EmitPushLeft() {
	g.emit(program.OpPush, T0, 0)
}

func (g *Generator) EmitEquality(op string) {
	done := g.B.NewLabel()
	g.emit(program.OpPop, T1, 0)
	g.emit(program.OpCmp, T1, T0)
	g.emit(program.OpMovb, T0, 1)
	switch op {
	case "==":
		g.jump(program.OpJe, 0, done)
	case "!=":
		g.jump(program.OpJne, 0, done)
	default:
		errors.Fatal("codegen: unknown equality operator " + op)
	}
	g.emit(program.OpMovb, T0, 0)
	g.B.PlaceLabel(done)
}

func (g *Generator) EmitRelational(op string) {
	done := g.B.NewLabel()
	g.emit(program.OpPop, T1, 0)
	g.emit(program.OpCmp, T1, T0)
	g.emit(program.OpMovb, T0, 1)
	switch op {
	case ">=":
		g.jump(program.OpJge, 0, done)
	case ">":
		g.jump(program.OpJg, 0, done)
	case "<":
		g.jump(program.OpJl, 0, done)
	case "<=":
		g.jump(program.OpJle, 0, done)
	default:
		errors.Fatal("codegen: unknown relational operator " + op)
	}
	g.emit(program.OpMovb, T0, 0)
	g.B.PlaceLabel(done)
}

// --- additive / multiplicative ---

func (g *Generator) EmitAdditive(op string) {
	g.emit(program.OpPop, T1, 0)
	switch op {
	case "+":
		cat := g.B.NewLabel()
		end := g.B.NewLabel()
		g.emit(program.OpTchks, T1, 0)
		g.jump(program.OpJe, 0, cat)
		g.emit(program.OpTchks, T0, 0)
		g.jump(program.OpJe, 0, cat)
		g.emit(program.OpAdd, T0, T1)
		g.jump(program.OpJmp, 0, end)
		g.B.PlaceLabel(cat)
		g.emit(program.OpCat, T1, T0)
		g.emit(program.OpXchg, T1, T0)
		g.B.PlaceLabel(end)
	case "-":
		g.emit(program.OpSub, T1, T0)
		g.emit(program.OpXchg, T1, T0)
	default:
		errors.Fatal("codegen: unknown additive operator " + op)
	}
}

func (g *Generator) EmitMultiplicative(op string) {
	g.emit(program.OpPop, T1, 0)
	switch op {
	case "*":
		g.emit(program.OpMul, T0, T1)
	case "/":
		g.emit(program.OpDiv, T1, T0)
		g.emit(program.OpXchg, T1, T0)
	default:
		errors.Fatal("codegen: unknown multiplicative operator " + op)
	}
}

// --- unary ---

func (g *Generator) EmitNeg() {
	g.emit(program.OpNeg, T0, T0)
}

func (g *Generator) EmitNot() {
	g.emit(program.OpLnot, T0, T0)
}

// EmitTypeof emits the type-probe ladder producing one of "number",
// "string", "object", "boolean", "null" in T0, tested in that order.
func (g *Generator) EmitTypeof() {
	str := g.B.NewLabel()
	obj := g.B.NewLabel()
	bol := g.B.NewLabel()
	nul := g.B.NewLabel()
	end := g.B.NewLabel()

	g.emit(program.OpTchkf, T0, 0)
	g.jump(program.OpJne, 0, str)
	g.emit(program.OpMovs, T0, g.B.Intern("number"))
	g.jump(program.OpJmp, 0, end)

	g.B.PlaceLabel(str)
	g.emit(program.OpTchks, T0, 0)
	g.jump(program.OpJne, 0, obj)
	g.emit(program.OpMovs, T0, g.B.Intern("string"))
	g.jump(program.OpJmp, 0, end)

	g.B.PlaceLabel(obj)
	g.emit(program.OpTchko, T0, 0)
	g.jump(program.OpJne, 0, bol)
	g.emit(program.OpMovs, T0, g.B.Intern("object"))
	g.jump(program.OpJmp, 0, end)

	g.B.PlaceLabel(bol)
	g.emit(program.OpTchkb, T0, 0)
	g.jump(program.OpJne, 0, nul)
	g.emit(program.OpMovs, T0, g.B.Intern("boolean"))
	g.jump(program.OpJmp, 0, end)

	g.B.PlaceLabel(nul)
	g.emit(program.OpMovs, T0, g.B.Intern("null"))

	g.B.PlaceLabel(end)
}

// EmitPreIncDec reads, mutates, writes, and yields the new value in T0.
func (g *Generator) EmitPreIncDec(sym *SymbolTable, name, op string) {
	if !sym.HasSymbol(name) {
		errors.Fatal("codegen: undefined symbol \"" + name + "\"")
	}
	g.EmitRead(sym, name, T0)
	if op == "++" {
		g.emit(program.OpInc, T0, 0)
	} else {
		g.emit(program.OpDec, T0, 0)
	}
	g.EmitWrite(sym, name, T0)
}

// EmitPostIncDec reads into T0, mutates a copy, writes the copy back, and
// leaves the original value in T0.
func (g *Generator) EmitPostIncDec(sym *SymbolTable, name, op string) {
	if !sym.HasSymbol(name) {
		errors.Fatal("codegen: undefined symbol \"" + name + "\"")
	}
	g.EmitRead(sym, name, T0)
	g.emit(program.OpMov, T1, T0)
	if op == "++" {
		g.emit(program.OpInc, T1, 0)
	} else {
		g.emit(program.OpDec, T1, 0)
	}
	g.EmitWrite(sym, name, T1)
}

// --- function calls ---

func (g *Generator) EmitPushArg() {
	g.emit(program.OpPush, T0, 0)
}

func (g *Generator) EmitPopArgs(n int32) {
	g.emit(program.OpPopn, n, 0)
}

func (g *Generator) EmitCall(name string, numParams int32) {
	g.emit(program.OpCall, g.B.Intern(name), numParams)
}

// --- dictionary / subscript assignment ---

// EmitDictGet compiles obj[k] read as a member call: get(k).
func (g *Generator) EmitDictGet(sym *SymbolTable, name string) {
	if !sym.HasSymbol(name) {
		errors.Fatal("codegen: undefined symbol \"" + name + "\"")
	}
	g.EmitRead(sym, name, T1)
	g.emit(program.OpPush, T1, 0)
	g.emit(program.OpPush, T0, 0)
	g.EmitCall("get", 1)
	g.emit(program.OpPopn, 2, 0)
}

// EmitDictSet1 saves the already-evaluated subscript key (T0) before the
// right-hand side is evaluated.
func (g *Generator) EmitDictSet1(sym *SymbolTable, op, name string) {
	if !sym.HasParent() {
		errors.Fatal("codegen: invalid attribution to \"" + name + "\" outside a function body")
	}
	g.emit(program.OpPush, T0, 0)
}

// EmitDictSet2 finishes obj[k] (op)= rhs, leaving rhs in T0.
// Named temporaries are used instead of reusing T1 across the key/object/
// rhs shuffle, since this sequence pushes three live values at once.
func (g *Generator) EmitDictSet2(sym *SymbolTable, op, name string) {
	if !sym.HasSymbol(name) {
		errors.Fatal("codegen: undefined symbol \"" + name + "\"")
	}

	g.emit(program.OpPop, T3, 0) // <key>
	g.emit(program.OpPush, T0, 0) // <rhs>
	g.EmitRead(sym, name, T1)
	g.emit(program.OpPush, T1, 0) // object
	g.emit(program.OpPush, T3, 0) // key

	switch op {
	case "=":
		g.emit(program.OpPush, T0, 0) // rhs
		g.EmitCall("set", 2)
		g.emit(program.OpPop, T0, 0) // result is the rhs
		g.emit(program.OpPopn, 3, 0)
	case "+=", "-=", "*=", "/=":
		g.EmitCall("get", 1)
		g.emit(program.OpPop, T3, 0)  // <key>
		g.emit(program.OpPopn, 1, 0)  // object, re-read from its symbol below
		g.emit(program.OpPop, T1, 0)  // <rhs>
		g.emit(program.OpPush, T1, 0) // <rhs>, kept as the expression's result
		switch op {
		case "+=":
			cat := g.B.NewLabel()
			end := g.B.NewLabel()
			g.emit(program.OpTchks, T1, 0)
			g.jump(program.OpJe, 0, cat)
			g.emit(program.OpTchks, T0, 0)
			g.jump(program.OpJe, 0, cat)
			g.emit(program.OpAdd, T0, T1)
			g.jump(program.OpJmp, 0, end)
			g.B.PlaceLabel(cat)
			g.emit(program.OpCat, T0, T1)
			g.B.PlaceLabel(end)
		case "-=":
			g.emit(program.OpSub, T0, T1)
		case "*=":
			g.emit(program.OpMul, T0, T1)
		case "/=":
			g.emit(program.OpDiv, T0, T1)
		}
		g.EmitRead(sym, name, T1)
		g.emit(program.OpPush, T1, 0)
		g.emit(program.OpPush, T3, 0)
		g.emit(program.OpPush, T0, 0)
		g.EmitCall("set", 2)
		g.emit(program.OpPopn, 3, 0)
		g.emit(program.OpPop, T0, 0) // result is the rhs
	default:
		errors.Fatal("codegen: unknown dictionary assignment operator " + op)
	}
}

// --- statements ---

func (g *Generator) EmitIf() (nope program.Label) {
	nope = g.B.NewLabel()
	g.emit(program.OpTest, T0, T0)
	g.jump(program.OpJe, 0, nope)
	return nope
}

func (g *Generator) EmitElse(nope program.Label) (done program.Label) {
	done = g.B.NewLabel()
	g.jump(program.OpJmp, 0, done)
	g.B.PlaceLabel(nope)
	return done
}

func (g *Generator) EmitEndIf(label program.Label) {
	g.B.PlaceLabel(label)
}

// --- functions ---

// EmitFunctionHeader reserves the PUSHN prologue slot, to be patched with
// the actual local count once the function body has been fully emitted.
func (g *Generator) EmitFunctionHeader() int {
	return g.B.Emit(program.OpPushn, 0, 0)
}

// EmitFunctionFooter patches the PUSHN prologue with numLocals (a no-op
// push when zero) and emits the implicit "return null" epilogue.
func (g *Generator) EmitFunctionFooter(headerIdx int, numLocals int32) {
	if numLocals > 0 {
		g.B.PatchB(headerIdx, numLocals)
	}
	g.emit(program.OpMovn, T0, 0)
	g.emit(program.OpRet, 0, 0)
}

// EmitFunctionArgument installs parameter idx (0 <= idx < argc) at its
// frame-relative offset. A duplicate parameter name is compile-fatal.
func (g *Generator) EmitFunctionArgument(sym *SymbolTable, name string, idx, argc int32) {
	if sym.HasLocalSymbol(name) {
		errors.Fatal("codegen: duplicate function parameter name \"" + name + "\"")
	}
	sym.PutStackSymbol(name, idx-argc)
}

func (g *Generator) EmitReturn() {
	g.emit(program.OpRet, 0, 0)
}

// --- constants & variables ---

func (g *Generator) EmitApp() {
	g.emit(program.OpMovr, T0, 0)
}

func (g *Generator) EmitThis() {
	g.emit(program.OpMovc, T0, 0)
}

func (g *Generator) EmitStateRead() {
	g.emit(program.OpMovt, T0, 0)
}

func (g *Generator) EmitIdentifier(sym *SymbolTable, name string) {
	if !sym.HasSymbol(name) {
		errors.Fatal("codegen: undefined symbol \"" + name + "\"")
	}
	g.EmitRead(sym, name, T0)
}

func (g *Generator) EmitNull() {
	g.emit(program.OpMovn, T0, 0)
}

func (g *Generator) EmitBool(v bool) {
	b := int32(0)
	if v {
		b = 1
	}
	g.emit(program.OpMovb, T0, b)
}

func (g *Generator) EmitNumber(f float32) {
	g.emit(program.OpMovf, T0, int32FromFloat(f))
}

func (g *Generator) EmitString(s string) {
	g.emit(program.OpMovs, T0, g.B.Intern(s))
}

func (g *Generator) EmitZero() {
	g.emit(program.OpXor, T0, T0)
}

// EmitSetState assigns T0 to the current state and ends the current
// program iteration.
func (g *Generator) EmitSetState() {
	g.emit(program.OpMovt, T0, -1)
}

func (g *Generator) EmitNop() {
	g.emit(program.OpNop, 0, 0)
}

// int32FromFloat packs a float32 into an instruction operand via its raw
// IEEE-754 bit pattern, not a truncating numeric conversion — the
// interpreter unpacks it the same way (math.Float32frombits).
func int32FromFloat(f float32) int32 {
	return int32(math.Float32bits(f))
}
