package realm

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/headercipher"
	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/worldlink"
)

// pendingTransfer holds the destination of an in-flight character
// relocation (spec §4.4.a "Transfer protocol"): the realm remembers where
// the client is headed while its current world node confirms the
// character has left.
type pendingTransfer struct {
	mapID               int32
	x, y, z             int32
	heading             int32
	targetInstanceID    int64
}

// Client is the realm's per-connection state (spec §3 "ClientConnection
// (realm)"). Unlike the login service's Client, this one survives across
// an entire play session: char-select, in-world play (by proxying, never
// interpreting), and zone/world transfers.
type Client struct {
	conn net.Conn
	ip   string

	send    *headercipher.SendState
	recv    *headercipher.RecvState
	decoder *headercipher.FrameDecoder

	writeMu sync.Mutex

	mu              sync.Mutex
	status          Status
	accountLogin    string
	sessionKeyK     []byte
	serverSeed      uint32
	clientSeed      uint32
	locale          string
	tutorialData    []byte
	authSessionSeen bool
	blocked         bool

	characters []model.CharacterSummary
	selected   *model.CharacterSummary

	gameChar   *model.GameCharacter
	boundWorld *worldlink.Connection
	instanceID int64
	transfer   *pendingTransfer

	groupID    int64
	unreadMail int32

	whoLastAt time.Time

	lastActivity time.Time
}

// NewClient wraps an accepted TCP connection. Ciphers start disabled; they
// are enabled once AuthSession installs the session key K (spec §4.2).
func NewClient(conn net.Conn, serverSeed uint32) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting host port: %w", err)
	}
	// Ciphers are constructed disabled (a nil session key still derives a
	// valid, if meaningless, rolling key) so readClientFrame/SendFrame
	// never have to special-case the pre-AuthSession cleartext window with
	// a nil check; CompleteAuth replaces both with the real K and enables
	// them.
	recv := headercipher.NewRecvState(nil)
	return &Client{
		conn:         conn,
		ip:           host,
		status:       StatusConnected,
		serverSeed:   serverSeed,
		send:         headercipher.NewSendState(nil),
		recv:         recv,
		decoder:      headercipher.NewFrameDecoder(recv, inboundHeaderLen),
		instanceID:   0,
		lastActivity: time.Now(),
	}, nil
}

func (c *Client) IP() string { return c.ip }

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

func (c *Client) Account() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountLogin
}

func (c *Client) ServerSeed() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverSeed
}

// BeginAuthSession records the client's half of the handshake and marks
// AuthSession as seen, so a second AuthSession on the same connection is
// rejected (spec §4.4 "AuthSession only once per connection").
func (c *Client) BeginAuthSession(clientSeed uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authSessionSeen {
		return false
	}
	c.authSessionSeen = true
	c.clientSeed = clientSeed
	return true
}

func (c *Client) ClientSeed() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientSeed
}

// CompleteAuth installs the session key, enables both header ciphers, and
// moves the connection to Authenticated (spec §4.4 step 3).
func (c *Client) CompleteAuth(accountLogin string, k, tutorialData []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountLogin = accountLogin
	c.sessionKeyK = k
	c.tutorialData = tutorialData
	c.send = headercipher.NewSendState(k)
	c.recv = headercipher.NewRecvState(k)
	c.send.Enable()
	c.recv.Enable()
	c.decoder = headercipher.NewFrameDecoder(c.recv, inboundHeaderLen)
	c.status = StatusAuthenticated
}

func (c *Client) Send() *headercipher.SendState { return c.send }
func (c *Client) Recv() *headercipher.RecvState { return c.recv }
func (c *Client) Decoder() *headercipher.FrameDecoder { return c.decoder }

// Block installs the PacketParseResult::Block sub-state (spec §5, §9):
// further client packets are refused until a pending DB continuation
// clears it. This is what prevents e.g. a second CharEnum racing the
// first's async load.
func (c *Client) Block() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = true
}

func (c *Client) Unblock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked = false
}

func (c *Client) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked
}

func (c *Client) SetCharacters(list []model.CharacterSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.characters = list
}

func (c *Client) Characters() []model.CharacterSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.characters
}

// FindCharacter returns the cached summary for id, invalidated on every
// create/delete/rename so it never serves stale at_login data.
func (c *Client) FindCharacter(id uint32) (model.CharacterSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.characters {
		if ch.DatabaseID == id {
			return ch, true
		}
	}
	return model.CharacterSummary{}, false
}

func (c *Client) SelectCharacter(ch model.CharacterSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &ch
}

func (c *Client) SelectedCharacter() *model.CharacterSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Client) SetGameCharacter(gc *model.GameCharacter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameChar = gc
}

func (c *Client) GameCharacter() *model.GameCharacter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameChar
}

func (c *Client) BindWorld(w *worldlink.Connection, instanceID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundWorld = w
	c.instanceID = instanceID
}

func (c *Client) BoundWorld() *worldlink.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundWorld
}

func (c *Client) InstanceID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instanceID
}

func (c *Client) SetPendingTransfer(t *pendingTransfer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transfer = t
}

func (c *Client) PendingTransfer() *pendingTransfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transfer
}

func (c *Client) SetGroupID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupID = id
}

func (c *Client) GroupID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupID
}

func (c *Client) SetUnreadMail(n int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unreadMail = n
}

func (c *Client) UnreadMail() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadMail
}

// AllowWho applies the Who-request cooldown (spec §4.4 "Who request
// <=1/6s").
func (c *Client) AllowWho(now time.Time, cooldown time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.whoLastAt) < cooldown {
		return false
	}
	c.whoLastAt = now
	return true
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

// SendFrame encodes and writes one realm->client frame, safe to call
// concurrently from the connection's own read loop and from world-uplink
// callbacks delivering async pushes (proxy packets, world-instance
// transitions). Unlike the login service's strict one-reply-per-request
// model, the realm's protocol has composite sequences (AuthResponse then
// AddonInfo) and server-initiated pushes, so writes are serialized here
// rather than funneled through a single per-read reply buffer.
func (c *Client) SendFrame(opcode byte, payload []byte) error {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()

	buf := make([]byte, outboundHeaderLen+len(payload))
	copy(buf[outboundHeaderLen:], payload)
	n := encodeClientFrame(buf, send, opcode, len(payload))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(buf[:n])
	return err
}
