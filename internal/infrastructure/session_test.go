package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContactSessionSerializes(t *testing.T) {
	sm := NewSessionManager()
	s := sm.GetOrCreateSession("tenant_1", "5511999998888")

	assert.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire(), "second acquire while processing must fail")

	s.Release()
	assert.True(t, s.TryAcquire())
	s.Release()
}

func TestSessionManagerKeysPerTenant(t *testing.T) {
	sm := NewSessionManager()
	a := sm.GetOrCreateSession("tenant_1", "5511999998888")
	b := sm.GetOrCreateSession("tenant_2", "5511999998888")

	assert.NotSame(t, a, b, "same phone in different tenants must not share a session")
	assert.Same(t, a, sm.GetOrCreateSession("tenant_1", "5511999998888"))
}

func TestSessionCleanup(t *testing.T) {
	sm := NewSessionManager()
	s := sm.GetOrCreateSession("tenant_1", "5511999998888")
	s.TryAcquire()
	s.Release()
	s.LastInbound = time.Now().Add(-2 * time.Hour)

	sm.Cleanup(time.Hour)
	assert.NotSame(t, s, sm.GetOrCreateSession("tenant_1", "5511999998888"))
}
