package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReusesExistingEntries(t *testing.T) {
	b := NewBuilder()
	id1 := b.Intern("hello")
	id2 := b.Intern("world")
	id3 := b.Intern("hello")
	assert.Equal(t, id1, id3)
	assert.NotEqual(t, id1, id2)
}

func TestForwardLabelResolvesToPlacedIndex(t *testing.T) {
	b := NewBuilder()
	end := b.NewLabel()
	b.EmitJump(OpJmp, 0, end)
	b.Emit(OpNop, 0, 0)
	b.Emit(OpNop, 0, 0)
	b.PlaceLabel(end)
	b.Emit(OpRet, 0, 0)

	p := b.Finalize(0)
	require.Len(t, p.Code, 4)
	assert.Equal(t, int32(3), p.Code[0].B)
}

func TestBackwardLabelResolvesToPlacedIndex(t *testing.T) {
	b := NewBuilder()
	loop := b.NewLabel()
	b.PlaceLabel(loop)
	b.Emit(OpDec, 2, 0)
	b.EmitJump(OpJne, 2, loop)
	b.Emit(OpRet, 0, 0)

	p := b.Finalize(0)
	assert.Equal(t, int32(0), p.Code[1].B)
}

func TestUnplacedLabelIsFatalAtFinalize(t *testing.T) {
	b := NewBuilder()
	ghost := b.NewLabel()
	b.EmitJump(OpJmp, 0, ghost)
	assert.Panics(t, func() { b.Finalize(0) })
}

func TestPlacingSameLabelTwicePanics(t *testing.T) {
	b := NewBuilder()
	l := b.NewLabel()
	b.PlaceLabel(l)
	assert.Panics(t, func() { b.PlaceLabel(l) })
}

func TestPatchBRewritesOperand(t *testing.T) {
	b := NewBuilder()
	idx := b.Emit(OpPushn, 0, 0)
	b.PatchB(idx, 3)
	p := b.Finalize(0)
	assert.Equal(t, int32(3), p.Code[idx].B)
}

func TestStringOutOfRangePanics(t *testing.T) {
	p := &Program{Strings: []string{"only"}}
	assert.Equal(t, "only", p.String(0))
	assert.Panics(t, func() { p.String(1) })
}

func TestOpcodeStringNames(t *testing.T) {
	assert.Equal(t, "CALL", OpCall.String())
	assert.Equal(t, "RET", OpRet.String())
	assert.Equal(t, "UNKNOWN", Opcode(255).String())
}
