package login

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/srp"
)

// Client is the login service's per-connection state (spec §3
// "ClientConnection (login)"). The SRP fields only hold meaning between
// LogonChallenge and LogonProof for one connection; they are never shared
// across connections or persisted beyond K.
type Client struct {
	conn net.Conn
	ip   string

	mu               sync.Mutex
	state            ConnectionState
	account          string // upper-cased username, set once a challenge is issued
	s, v             []byte // salt/verifier in play for this handshake
	challenge        *srp.Challenge
	reconnectProof   []byte
	realmListWindow  time.Time
	realmListInCount int
	lastActivity     time.Time
}

// NewClient wraps an accepted TCP connection.
func NewClient(conn net.Conn) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting host port: %w", err)
	}
	return &Client{
		conn:         conn,
		ip:           host,
		state:        StateNew,
		lastActivity: time.Now(),
	}, nil
}

func (c *Client) IP() string { return c.ip }

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) SetState(s ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) Account() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// BeginChallenge records the (s, v, Challenge) this connection committed
// to, once per connection (spec §8 property 3: "single-use handshake").
func (c *Client) BeginChallenge(account string, s, v []byte, ch *srp.Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = account
	c.s, c.v = s, v
	c.challenge = ch
}

func (c *Client) Challenge() (s, v []byte, ch *srp.Challenge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s, c.v, c.challenge
}

// BeginReconnect records the pending reconnect challenge.
func (c *Client) BeginReconnect(account string, reconnectProof []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = account
	c.reconnectProof = reconnectProof
}

func (c *Client) ReconnectProof() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectProof
}

// AllowRealmListRequest applies the 3-per-10-second rate limit (spec §4.3,
// §8 property 6). Returns false once the caller should close the
// connection instead of answering.
func (c *Client) AllowRealmListRequest(now time.Time, window time.Duration, burst int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.realmListWindow) > window {
		c.realmListWindow = now
		c.realmListInCount = 0
	}
	c.realmListInCount++
	return c.realmListInCount <= burst
}

func (c *Client) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

func (c *Client) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
