package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
)

func testIdentity(id string) *domainauth.Identity {
	return &domainauth.Identity{
		ID:          id,
		Email:       id + "@example.com",
		Role:        domainauth.RoleCliente,
		AccessToken: "tok-" + id,
	}
}

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestState_CurrentStartsAbsent(t *testing.T) {
	state, _ := New()
	assert.Nil(t, state.Current())
}

func TestState_ObserveReplaysCurrentValue(t *testing.T) {
	state, publish := New()
	publish.Set(testIdentity("u1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := recvSnapshot(t, state.Observe(ctx))
	require.True(t, snap.Authenticated())
	assert.Equal(t, "u1", snap.Identity.ID)
}

func TestState_ObserveReplaysAbsent(t *testing.T) {
	state, _ := New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := recvSnapshot(t, state.Observe(ctx))
	assert.False(t, snap.Authenticated())
	assert.Nil(t, snap.Identity)
}

func TestState_ObserversSeeChanges(t *testing.T) {
	state, publish := New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := state.Observe(ctx)
	recvSnapshot(t, ch) // initial replay

	publish.Set(testIdentity("u1"))
	assert.Equal(t, "u1", recvSnapshot(t, ch).Identity.ID)

	publish.Clear()
	assert.False(t, recvSnapshot(t, ch).Authenticated())
}

func TestState_UnsubscribeClosesChannel(t *testing.T) {
	state, publish := New()

	ctx, cancel := context.WithCancel(context.Background())
	ch := state.Observe(ctx)
	recvSnapshot(t, ch)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "channel should close after unsubscribe")

	// Publishing after unsubscribe must not panic or block.
	publish.Set(testIdentity("u2"))
}

func TestState_SlowObserverConvergesOnLatest(t *testing.T) {
	state, publish := New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := state.Observe(ctx)

	// Never drain while a burst of updates overflows the buffer.
	for i := 0; i < 50; i++ {
		publish.Set(testIdentity("burst"))
	}
	publish.Set(testIdentity("final"))

	var last Snapshot
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		default:
		}
		break
	}
	require.NotNil(t, last.Identity)
	assert.Equal(t, "final", last.Identity.ID)
}

func TestState_SnapshotsAreCopies(t *testing.T) {
	state, publish := New()
	original := testIdentity("u1")
	publish.Set(original)

	got := state.Current()
	require.NotNil(t, got)
	got.Email = "tampered@example.com"

	again := state.Current()
	assert.Equal(t, "u1@example.com", again.Email, "mutating a snapshot must not affect the state")

	original.Email = "also-tampered@example.com"
	assert.Equal(t, "u1@example.com", state.Current().Email, "mutating the published value must not affect the state")
}

func TestPublisher_StateReturnsReadHalf(t *testing.T) {
	state, publish := New()
	assert.Same(t, state, publish.State())
}
