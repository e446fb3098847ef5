package realmlink

import (
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/crypto"
)

// Connection is one realm's uplink to the login service (spec §3
// "RealmConnection"): a single long-lived TCP link the realm opens on
// startup, authenticated once, then used for player login handoffs,
// keep-alives and tutorial writebacks until it drops.
type Connection struct {
	conn   net.Conn
	cipher *crypto.BlowfishCipher
	ip     string

	mu            sync.Mutex
	authenticated bool
	realmID       int32
	internalName  string
	lastActivity  time.Time
}

// NewConnection wraps an accepted TCP connection with the static Blowfish
// key every uplink starts with, before RealmLogin authenticates it.
func NewConnection(conn net.Conn) (*Connection, error) {
	cipher, err := crypto.NewBlowfishCipher(crypto.DefaultGSBlowfishKey)
	if err != nil {
		return nil, err
	}
	host, _, splitErr := net.SplitHostPort(conn.RemoteAddr().String())
	if splitErr != nil {
		host = conn.RemoteAddr().String()
	}
	return &Connection{
		conn:         conn,
		cipher:       cipher,
		ip:           host,
		lastActivity: time.Now(),
	}, nil
}

func (c *Connection) IP() string { return c.ip }

func (c *Connection) Cipher() *crypto.BlowfishCipher { return c.cipher }

// Authenticate marks the connection as belonging to a known realm, once
// RealmLogin has been verified.
func (c *Connection) Authenticate(realmID int32, internalName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.realmID = realmID
	c.internalName = internalName
}

func (c *Connection) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Connection) RealmID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.realmID
}

func (c *Connection) InternalName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalName
}

// Touch records activity, resetting the idle timer (spec §4.3: the uplink
// is dropped after 30 seconds without a keep-alive or other frame).
func (c *Connection) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// IdleFor reports how long it has been since the last frame was seen.
func (c *Connection) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}
