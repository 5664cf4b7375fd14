package feedme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/feedme-client/pkg/errors"
)

// TestUT_FM_06_01_Feed_DesireOpenTwice_FailsInvalidFeedState verifies the
// idempotency-at-desired-state-level contract (spec §4.7).
func TestUT_FM_06_01_Feed_DesireOpenTwice_FailsInvalidFeedState(t *testing.T) {
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport()}), func(string) error { return nil }, newDispatcher(), func(func()) {}, noopRegistryEvents{})
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, nil)

	require.NoError(t, f.DesireOpen())
	err := f.DesireOpen()
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidFeedState))
}

// TestUT_FM_06_02_Feed_Destroy_RequiresDesiredClosed verifies Destroy fails
// unless the handle has first been desired closed (spec §4.7).
func TestUT_FM_06_02_Feed_Destroy_RequiresDesiredClosed(t *testing.T) {
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport()}), func(string) error { return nil }, newDispatcher(), func(func()) {}, noopRegistryEvents{})
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, nil)
	require.NoError(t, f.DesireOpen())

	err := f.Destroy()
	require.Error(t, err)
	assert.True(t, errors.HasKind(err, errors.KindInvalidFeedState))

	require.NoError(t, f.DesireClosed())
	require.NoError(t, f.Destroy())
}

// TestUT_FM_06_03_Feed_OperationsAfterDestroy_FailDestroyed verifies every
// operation on a destroyed handle fails DESTROYED (spec §4.7).
func TestUT_FM_06_03_Feed_OperationsAfterDestroy_FailDestroyed(t *testing.T) {
	r := newRegistry(NewOptions(Options{Transport: NewFakeTransport()}), func(string) error { return nil }, newDispatcher(), func(func()) {}, noopRegistryEvents{})
	f := r.NewFeed(FeedIdentity{Name: "widgets"}, nil)
	require.NoError(t, f.DesireClosed())
	require.NoError(t, f.Destroy())

	_, err := f.State()
	assert.True(t, errors.HasKind(err, errors.KindDestroyed))
	_, err = f.Data()
	assert.True(t, errors.HasKind(err, errors.KindDestroyed))
	assert.True(t, errors.HasKind(f.DesireOpen(), errors.KindDestroyed))
}

// TestUT_FM_06_04_FeedIdentity_KeyStableUnderArgOrder verifies that the
// lookup key for a FeedIdentity does not depend on map iteration order.
func TestUT_FM_06_04_FeedIdentity_KeyStableUnderArgOrder(t *testing.T) {
	a := FeedIdentity{Name: "widgets", Args: map[string]string{"x": "1", "y": "2"}}
	b := FeedIdentity{Name: "widgets", Args: map[string]string{"y": "2", "x": "1"}}
	assert.Equal(t, a.key(), b.key())
}

type noopRegistryEvents struct{}

func (noopRegistryEvents) onBadServerMessage(err error)         {}
func (noopRegistryEvents) onBadClientMessage(diagnostics string) {}
