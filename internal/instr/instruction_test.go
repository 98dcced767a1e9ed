package instr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp16(t *testing.T) {
	assert.Equal(t, uint16(0), Clamp16(-5))
	assert.Equal(t, uint16(MaxLiteral), Clamp16(1_000_000))
	assert.Equal(t, uint16(42), Clamp16(42))
}

func TestUnrollFlat(t *testing.T) {
	program := []Instruction{
		{Kind: Declare, Dest: "x", LHS: Lit(1)},
		{Kind: Print, PrintTok: VarTok("x")},
	}
	out := Unroll(program)
	require.Len(t, out, 2)
	assert.Equal(t, Declare, out[0].Kind)
	assert.Equal(t, Print, out[1].Kind)
}

func TestUnrollSimpleFor(t *testing.T) {
	program := []Instruction{
		{
			Kind:      For,
			RepeatRaw: "3",
			Body: []Instruction{
				{Kind: Print, PrintIsLit: true, PrintLit: "tick"},
			},
		},
	}
	out := Unroll(program)
	require.Len(t, out, 3)
	for _, in := range out {
		assert.Equal(t, Print, in.Kind)
	}
}

func TestUnrollMalformedRepeatFallsBackToOnePass(t *testing.T) {
	program := []Instruction{
		{
			Kind:      For,
			RepeatRaw: "not-a-number",
			Body: []Instruction{
				{Kind: Print, PrintIsLit: true, PrintLit: "x"},
			},
		},
	}
	out := Unroll(program)
	require.Len(t, out, 1)
}

func TestUnrollZeroRepeatFallsBackToOnePass(t *testing.T) {
	program := []Instruction{
		{
			Kind:      For,
			RepeatRaw: "0",
			Body: []Instruction{
				{Kind: Print, PrintIsLit: true, PrintLit: "x"},
			},
		},
	}
	out := Unroll(program)
	require.Len(t, out, 1)
}

func TestUnrollRespectsNestingLimit(t *testing.T) {
	inner := Instruction{Kind: Print, PrintIsLit: true, PrintLit: "deep"}
	level := inner
	for i := 0; i < ForMaxNesting+2; i++ {
		level = Instruction{Kind: For, RepeatRaw: "2", Body: []Instruction{level}}
	}
	out := Unroll([]Instruction{level})
	assert.NotEmpty(t, out)
	for _, in := range out {
		assert.Equal(t, Print, in.Kind)
	}
}

func TestEstimatedSizeMatchesUnrollLength(t *testing.T) {
	program := []Instruction{
		{
			Kind:      For,
			RepeatRaw: "4",
			Body: []Instruction{
				{Kind: Declare, Dest: "y", LHS: Lit(2)},
				{Kind: Sleep, SleepTicks: 1},
			},
		},
		{Kind: Print, PrintIsLit: true, PrintLit: "done"},
	}
	assert.Equal(t, len(Unroll(program)), EstimatedSize(program))
}
