package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/graphcommit/builder"
	"github.com/vk/graphcommit/internal/testutil"
	"github.com/vk/graphcommit/node"
	"github.com/vk/graphcommit/snapshot"
)

type slowDouble struct {
	node.DerivedBase
	delay time.Duration
}

func newSlowDouble(name string, delay time.Duration, deps ...node.Node) *slowDouble {
	return &slowDouble{DerivedBase: node.NewDerivedBase(name, deps...), delay: delay}
}

func (s *slowDouble) Calculate(inputs []any) (any, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return inputs[0].(float64) * 2, nil
}

func newFacadeWithDoubler(t *testing.T, delay time.Duration, opts ...Option) (*Facade, *testutil.NumberInput, *slowDouble) {
	t.Helper()
	b := builder.New()
	a := testutil.NewNumberInput("a")
	d := newSlowDouble("doubled", delay, a)
	_, err := b.AddInput(a, 1.0)
	require.NoError(t, err)
	_, err = b.AddCalculation(d)
	require.NoError(t, err)
	snap, err := b.BuildAndCommit(context.Background())
	require.NoError(t, err)

	f := New(snap, opts...)
	t.Cleanup(f.Close)
	return f, a, d
}

func TestSetValue_TriggersCommitAndNotifies(t *testing.T) {
	f, a, d := newFacadeWithDoubler(t, 0)

	var received map[node.Node]struct{}
	f.OnStateChanged(func(changes map[node.Node]struct{}, snap *snapshot.Snapshot) {
		received = changes
	})

	_, err := f.SetValue(a, 5.0, true, false)
	require.NoError(t, err)
	f.WaitForAllPending()

	v, err := f.Current().GetValue(d)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	assert.Contains(t, received, node.Node(a))
	assert.Contains(t, received, node.Node(d))
}

func TestDisableAutoCommit_SuspendsAndResumes(t *testing.T) {
	f, a, d := newFacadeWithDoubler(t, 0)

	guard := f.DisableAutoCommit()
	next, err := f.SetValue(a, 7.0, true, false)
	require.NoError(t, err)
	assert.False(t, next.IsConsistent(), "auto-commit is suspended")

	guard.Close()
	f.WaitForAllPending()

	v, err := f.Current().GetValue(d)
	require.NoError(t, err)
	assert.Equal(t, 14.0, v)
}

func TestCommit_CancellationCarriesOverLiveChanges(t *testing.T) {
	f, a, _ := newFacadeWithDoubler(t, 30*time.Millisecond, WithContinueAborted(true))

	_, err := f.SetValue(a, 100.0, true, false)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = f.SetValue(a, 200.0, true, false)
	require.NoError(t, err)

	f.WaitForAllPending()
	time.Sleep(50 * time.Millisecond)
	f.WaitForAllPending()

	v, err := f.Current().GetValue(a)
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)
}

func TestRegisterDerived_ExtendsNetwork(t *testing.T) {
	f, a, _ := newFacadeWithDoubler(t, 0)
	tripled := newSlowDouble("tripled", 0, a)

	err := f.RegisterDerived(tripled)
	require.NoError(t, err)

	f.Commit(true)
	f.WaitForAllPending()

	_, err = f.Current().GetValue(tripled)
	require.NoError(t, err)
}

func TestObserveNode_FiresOnlyForTarget(t *testing.T) {
	f, a, d := newFacadeWithDoubler(t, 0)

	var fired int
	obs := ObserveNode(f, d, func(snap *snapshot.Snapshot) { fired++ })
	defer obs.Close()

	_, err := f.SetValue(a, 9.0, true, false)
	require.NoError(t, err)
	f.WaitForAllPending()

	assert.Equal(t, 1, fired)
}
