package realm

import "sync"

// clientRegistry tracks online clients by the database id of their
// selected character, so realm-local broadcasts (friend removed, rename
// notice) and world-uplink callbacks (proxy delivery, position/group/mail
// updates) can find the right connection without scanning every socket.
type clientRegistry struct {
	mu   sync.Mutex
	byID map[uint32]*Client
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{byID: make(map[uint32]*Client)}
}

func (r *clientRegistry) add(characterID uint32, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[characterID] = c
}

func (r *clientRegistry) remove(characterID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, characterID)
}

func (r *clientRegistry) find(characterID uint32) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[characterID]
}

// all returns a snapshot of every online client, used for broadcasts like
// CharRename's realm-local name-change notice.
func (r *clientRegistry) all() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}
