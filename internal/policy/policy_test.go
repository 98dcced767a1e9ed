package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sisoputnfrba/go-procsched/internal/procmodel"
)

func proc(id uint32, priority uint32, lastActive uint64) *procmodel.Process {
	p := procmodel.NewProcess(id, "p", nil, 0)
	p.SetPriority(priority)
	p.MarkRunning(0, lastActive)
	p.MarkReady()
	return p
}

func TestLessFCFSOrdersByLastActiveTickThenPID(t *testing.T) {
	a := proc(2, 0, 5)
	b := proc(1, 0, 10)
	require.True(t, Less(a, b, FCFS))
	require.False(t, Less(b, a, FCFS))

	c := proc(1, 0, 5)
	d := proc(2, 0, 5)
	require.True(t, Less(c, d, FCFS))
}

func TestLessPriorityOrdersDescendingThenPID(t *testing.T) {
	high := proc(5, 10, 0)
	low := proc(1, 1, 0)
	require.True(t, Less(high, low, Priority))
	require.False(t, Less(low, high, Priority))
}

func TestParseRecognizesPolicies(t *testing.T) {
	p, err := Parse("rr")
	require.NoError(t, err)
	require.Equal(t, RR, p)

	_, err = Parse("bogus")
	require.Error(t, err)
}
