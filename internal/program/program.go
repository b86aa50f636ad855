// Package program implements the runtime's bytecode container: a flat
// sequence of 3-field instructions, a string-literal table, a label table
// resolved at emission end, and a declared arity.
package program

import "ember/internal/errors"

// Opcode identifies an instruction's operation.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Data move
	OpMov  // MOV Ti, Tj
	OpMovn // MOVN Ti
	OpMovb // MOVB Ti, b
	OpMovf // MOVF Ti, f
	OpMovs // MOVS Ti, sid
	OpMovc // MOVC Ti (this-handle)
	OpMovr // MOVR Ti (root-handle)
	OpMovt // MOVT Ti[, -1]

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpInc
	OpDec
	OpXor

	// Logic
	OpLnot

	// String
	OpCat

	// Stack ops
	OpPush
	OpPop
	OpPopn
	OpPushn
	OpXchg

	// Type checks
	OpTchkf
	OpTchks
	OpTchko
	OpTchkb
	OpTchkn

	// Compare
	OpCmp
	OpTest

	// Control flow
	OpJmp
	OpJe
	OpJne
	OpJg
	OpJge
	OpJl
	OpJle

	// Calls
	OpCall

	// Heap access
	OpAloc
	OpLoadHeap  // LDH Ti, addr — read the current object's heap cell at addr into Ti
	OpStoreHeap // STH Ti, addr — write Ti into the current object's heap cell at addr

	// Stack-frame local access (symbol-table storage descriptor, see §4.5)
	OpLoadLocal  // LDL Ti, offset — read frame-relative stack slot into Ti
	OpStoreLocal // STL Ti, offset — write Ti into frame-relative stack slot

	// Object lifecycle
	OpRet
)

func (op Opcode) String() string {
	names := [...]string{
		"NOP", "MOV", "MOVN", "MOVB", "MOVF", "MOVS", "MOVC", "MOVR", "MOVT",
		"ADD", "SUB", "MUL", "DIV", "NEG", "INC", "DEC", "XOR",
		"LNOT", "CAT",
		"PUSH", "POP", "POPN", "PUSHN", "XCHG",
		"TCHKF", "TCHKS", "TCHKO", "TCHKB", "TCHKN",
		"CMP", "TEST",
		"JMP", "JE", "JNE", "JG", "JGE", "JL", "JLE",
		"CALL", "ALOC", "LDH", "STH", "LDL", "STL", "RET",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "UNKNOWN"
}

// Instruction is a single bytecode op with its two operands. Operands are
// untyped 32-bit words; a given opcode fixes how they are interpreted (a
// register index, a float bit pattern, a boolean, a string-table id, a
// resolved instruction index, or a signed count).
type Instruction struct {
	Op Opcode
	A  int32
	B  int32
}

// Program is immutable once built by Finalize. It may be re-entered
// (recursion is supported by the caller opening a fresh stack frame per
// call).
type Program struct {
	Code    []Instruction
	Strings []string
	Arity   int
}

// Label is an opaque handle allocated during emission and resolved to an
// instruction index by Builder.Finalize.
type Label uint32

// Builder assembles a Program incrementally. Label targets are patched once
// every label has been placed, so instructions may reference labels before
// their eventual position is known.
type Builder struct {
	code     []Instruction
	strings  []string
	stringOf map[string]int32

	labelPos   map[Label]int
	pending    []pendingJump
	nextLabel  Label
}

type pendingJump struct {
	instrIndex int
	label      Label
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		stringOf: make(map[string]int32),
		labelPos: make(map[Label]int),
	}
}

// Intern returns the string-table id for s, reusing an existing entry when
// the same literal was interned before.
func (b *Builder) Intern(s string) int32 {
	if id, ok := b.stringOf[s]; ok {
		return id
	}
	id := int32(len(b.strings))
	b.strings = append(b.strings, s)
	b.stringOf[s] = id
	return id
}

// NewLabel allocates a fresh, as-yet-unplaced label.
func (b *Builder) NewLabel() Label {
	l := b.nextLabel
	b.nextLabel++
	return l
}

// PlaceLabel binds l to the instruction index that will be emitted next.
// Placing the same label twice is a compiler bug and is fatal.
func (b *Builder) PlaceLabel(l Label) {
	if _, exists := b.labelPos[l]; exists {
		errors.Fatal("program: label %d placed twice", l)
	}
	b.labelPos[l] = len(b.code)
}

// Emit appends a plain instruction (no label operand) and returns its index.
func (b *Builder) Emit(op Opcode, a, bOperand int32) int {
	idx := len(b.code)
	b.code = append(b.code, Instruction{Op: op, A: a, B: bOperand})
	return idx
}

// EmitJump appends a control-flow instruction whose B operand is a label to
// resolve at Finalize time. A is the register operand where the opcode
// needs one (ignored for JMP).
func (b *Builder) EmitJump(op Opcode, a int32, target Label) int {
	idx := len(b.code)
	b.code = append(b.code, Instruction{Op: op, A: a})
	b.pending = append(b.pending, pendingJump{instrIndex: idx, label: target})
	return idx
}

// PatchB rewrites the B operand of an already-emitted instruction. Used by
// prologue/epilogue emission that must patch PUSHN only after locals count
// is known.
func (b *Builder) PatchB(instrIndex int, value int32) {
	b.code[instrIndex].B = value
}

// Finalize resolves every pending jump target against placed labels and
// produces an immutable Program. Referencing a label that was never placed
// is a compiler bug and is fatal.
func (b *Builder) Finalize(arity int) *Program {
	for _, p := range b.pending {
		pos, ok := b.labelPos[p.label]
		if !ok {
			errors.Fatal("program: label %d referenced but never placed", p.label)
		}
		b.code[p.instrIndex].B = int32(pos)
	}
	return &Program{
		Code:    b.code,
		Strings: b.strings,
		Arity:   arity,
	}
}

// String renders sid, panicking on an out-of-range id (a malformed
// program is a compiler bug, not a runtime condition to recover from).
func (p *Program) String(sid int32) string {
	if sid < 0 || int(sid) >= len(p.Strings) {
		errors.Fatal("program: string id %d out of range", sid)
	}
	return p.Strings[sid]
}
