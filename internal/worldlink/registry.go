package worldlink

import "sync"

// Registry tracks which world-node connection owns which map and which
// instance, so PlayerLogin(characterId) can pick "the world node owning
// the character's map, first match wins" (spec §4.4 step 8) and a
// transfer can resolve an existing group instance binding back to its
// live connection (spec §4.4.a).
type Registry struct {
	mu         sync.Mutex
	byMap      map[int32]*Connection
	byInstance map[int64]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		byMap:      make(map[int32]*Connection),
		byInstance: make(map[int64]*Connection),
	}
}

// Register adds conn as the owner of every map id in mapIDs it doesn't
// already have an owner for (first match wins — an already-registered map
// keeps its original node).
func (r *Registry) Register(conn *Connection, mapIDs []int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range mapIDs {
		if _, ok := r.byMap[id]; !ok {
			r.byMap[id] = conn
		}
	}
}

// Unregister removes every map/instance binding pointing at conn, called
// when its uplink drops (spec §4.5 "world connection lost").
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for mapID, c := range r.byMap {
		if c == conn {
			delete(r.byMap, mapID)
		}
	}
	for instanceID, c := range r.byInstance {
		if c == conn {
			delete(r.byInstance, instanceID)
		}
	}
}

func (r *Registry) FindByMap(mapID int32) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byMap[mapID]
}

func (r *Registry) FindByInstance(instanceID int64) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byInstance[instanceID]
}

// BindInstance records which connection is currently running instanceID,
// so a reassembling group member resolves to the same live instance
// (spec §4.4 step 8) rather than the map's default node.
func (r *Registry) BindInstance(instanceID int64, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byInstance[instanceID] = conn
}
