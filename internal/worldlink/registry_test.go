package worldlink

import (
	"net"
	"testing"
)

func newTestConnection(t *testing.T) *Connection {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	conn, err := NewConnection(server)
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	return conn
}

func TestRegistryRegisterFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	a := newTestConnection(t)
	b := newTestConnection(t)

	r.Register(a, []int32{1, 2})
	r.Register(b, []int32{2, 3})

	if got := r.FindByMap(1); got != a {
		t.Errorf("FindByMap(1) = %p, want a (%p)", got, a)
	}
	if got := r.FindByMap(2); got != a {
		t.Errorf("FindByMap(2) = %p, want a (%p) — first registration should win", got, a)
	}
	if got := r.FindByMap(3); got != b {
		t.Errorf("FindByMap(3) = %p, want b (%p)", got, b)
	}
}

func TestRegistryFindByMapUnknown(t *testing.T) {
	r := NewRegistry()
	if got := r.FindByMap(999); got != nil {
		t.Errorf("FindByMap(999) = %v, want nil", got)
	}
}

func TestRegistryUnregisterRemovesAllBindings(t *testing.T) {
	r := NewRegistry()
	a := newTestConnection(t)
	b := newTestConnection(t)

	r.Register(a, []int32{1, 2})
	r.Register(b, []int32{5})
	r.BindInstance(100, a)
	r.BindInstance(101, a)
	r.BindInstance(200, b)

	r.Unregister(a)

	if got := r.FindByMap(1); got != nil {
		t.Errorf("FindByMap(1) after unregister = %v, want nil", got)
	}
	if got := r.FindByMap(2); got != nil {
		t.Errorf("FindByMap(2) after unregister = %v, want nil", got)
	}
	if got := r.FindByInstance(100); got != nil {
		t.Errorf("FindByInstance(100) after unregister = %v, want nil", got)
	}
	if got := r.FindByInstance(101); got != nil {
		t.Errorf("FindByInstance(101) after unregister = %v, want nil", got)
	}

	// b's bindings must survive a's unregister.
	if got := r.FindByMap(5); got != b {
		t.Errorf("FindByMap(5) = %v, want b (%p)", got, b)
	}
	if got := r.FindByInstance(200); got != b {
		t.Errorf("FindByInstance(200) = %v, want b (%p)", got, b)
	}
}

func TestRegistryBindInstanceOverwritesOwner(t *testing.T) {
	r := NewRegistry()
	a := newTestConnection(t)
	b := newTestConnection(t)

	r.BindInstance(50, a)
	if got := r.FindByInstance(50); got != a {
		t.Fatalf("FindByInstance(50) = %p, want a (%p)", got, a)
	}

	r.BindInstance(50, b)
	if got := r.FindByInstance(50); got != b {
		t.Errorf("FindByInstance(50) = %p, want b (%p) after rebind", got, b)
	}
}

func TestConnectionAuthenticateAndSupportsMap(t *testing.T) {
	c := newTestConnection(t)
	if c.Authenticated() {
		t.Fatal("new connection should not be authenticated")
	}
	c.Authenticate([]int32{7, 8})
	if !c.Authenticated() {
		t.Error("Authenticated() = false after Authenticate")
	}
	if !c.SupportsMap(7) || !c.SupportsMap(8) {
		t.Error("SupportsMap should be true for authenticated map ids")
	}
	if c.SupportsMap(9) {
		t.Error("SupportsMap(9) = true, want false")
	}
}

func TestConnectionInstanceTracking(t *testing.T) {
	c := newTestConnection(t)
	if c.HasInstance(1) {
		t.Fatal("new connection should have no instances")
	}
	c.AddInstance(1)
	c.AddInstance(2)
	if !c.HasInstance(1) || !c.HasInstance(2) {
		t.Error("HasInstance should be true for added instances")
	}
	c.RemoveInstance(1)
	if c.HasInstance(1) {
		t.Error("HasInstance(1) = true after RemoveInstance")
	}
	if !c.HasInstance(2) {
		t.Error("HasInstance(2) = false, want true (untouched)")
	}
}

func TestConnectionMapIDsReturnsAll(t *testing.T) {
	c := newTestConnection(t)
	c.Authenticate([]int32{1, 2, 3})
	ids := c.MapIDs()
	if len(ids) != 3 {
		t.Fatalf("len(MapIDs()) = %d, want 3", len(ids))
	}
	seen := map[int32]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []int32{1, 2, 3} {
		if !seen[want] {
			t.Errorf("MapIDs() missing %d", want)
		}
	}
}
