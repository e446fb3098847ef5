package realmlink

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/crypto"
	"github.com/realmbroker/realmd/internal/protocol"
)

// Client is the realm's side of the uplink to the login service (spec §4.3
// "Login↔realm side channel"): dials out once on startup, authenticates
// with RealmLogin, then serializes every subsequent request-reply
// round trip over the one connection. The wire protocol (Blowfish framing,
// checksums, opcodes) is owned by this package on both ends, so the realm
// reuses WritePacket/ReadPacket rather than re-implementing them.
type Client struct {
	conn   net.Conn
	cipher *crypto.BlowfishCipher

	mu      sync.Mutex
	sendBuf []byte
	readBuf []byte
}

// PlayerLoginOutcome is the result of a PlayerLoginRequest round trip.
type PlayerLoginOutcome struct {
	Admitted     bool
	FailReason   byte
	SessionKeyK  []byte
	SRPSalt      []byte
	SRPVerifier  []byte
	TutorialData []byte
}

// DialRealm opens the uplink and performs the RealmLogin handshake (spec
// §4.3 step 1). The returned Client is ready for PlayerLoginRequest,
// UpdateCurrentPlayers, KeepAlive and TutorialData traffic.
func DialRealm(ctx context.Context, cfg RealmUplinkConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.LoginHost, cfg.LoginPort)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("realmlink: dialing login service %s: %w", addr, err)
	}

	cipher, err := crypto.NewBlowfishCipher(crypto.DefaultGSBlowfishKey)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:    conn,
		cipher:  cipher,
		sendBuf: make([]byte, constants.RealmLinkSendBufSize),
		readBuf: make([]byte, constants.RealmLinkReadBufSize),
	}

	if err := c.realmLogin(cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// RealmUplinkConfig is the subset of config.RealmServer the uplink
// handshake needs, kept separate so this package doesn't import
// internal/config (which already depends on nothing realm-specific, but
// the narrower type keeps the dependency direction obvious).
type RealmUplinkConfig struct {
	LoginHost      string
	LoginPort      int
	InternalName   string
	VisibleName    string
	UplinkPassword string
	RealmID        int32
	BindAddress    string
	Port           int
}

func (c *Client) realmLogin(cfg RealmUplinkConfig) error {
	pos := constants.PacketHeaderSize
	n := writeRealmLoginFrame(c.sendBuf[pos:], RealmLoginFrame{
		ProtocolVersion: ProtocolVersion,
		Password:        cfg.UplinkPassword,
		InternalName:    cfg.InternalName,
		VisibleName:     cfg.VisibleName,
		Host:            cfg.BindAddress,
		Port:            int32(cfg.Port),
		RealmID:         cfg.RealmID,
	})
	if err := WritePacket(c.conn, c.cipher, c.sendBuf, n); err != nil {
		return fmt.Errorf("realmlink: sending RealmLogin: %w", err)
	}

	payload, err := ReadPacket(c.conn, c.cipher, c.readBuf)
	if err != nil {
		return fmt.Errorf("realmlink: reading RealmLogin reply: %w", err)
	}
	if len(payload) < 2 || payload[0] != OpcodeLoginResult {
		return fmt.Errorf("realmlink: unexpected RealmLogin reply opcode")
	}
	if result := payload[1]; result != LoginResultOk {
		return fmt.Errorf("realmlink: RealmLogin rejected, result=%d", result)
	}
	return nil
}

// RequestPlayerLogin asks the login service whether accountName may enter
// this realm right now (spec §4.4 step 2 "verify hash" depends on the
// session key K this call returns). The round trip is serialized: this
// protocol carries no request id, so only one PlayerLoginRequest may be
// in flight on the connection at a time.
func (c *Client) RequestPlayerLogin(accountName string) (*PlayerLoginOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos := constants.PacketHeaderSize
	n := writePlayerLoginRequestFrame(c.sendBuf[pos:], accountName)
	if err := WritePacket(c.conn, c.cipher, c.sendBuf, n); err != nil {
		return nil, fmt.Errorf("realmlink: sending PlayerLoginRequest: %w", err)
	}

	payload, err := ReadPacket(c.conn, c.cipher, c.readBuf)
	if err != nil {
		return nil, fmt.Errorf("realmlink: reading PlayerLoginRequest reply: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("realmlink: empty PlayerLoginRequest reply")
	}

	switch payload[0] {
	case OpcodePlayerLoginSuccess:
		frame, err := parsePlayerLoginSuccessFrame(payload[1:])
		if err != nil {
			return nil, err
		}
		return &PlayerLoginOutcome{
			Admitted:     true,
			SessionKeyK:  frame.K,
			SRPSalt:      frame.Salt,
			SRPVerifier:  frame.Verifier,
			TutorialData: frame.TutorialData,
		}, nil
	case OpcodePlayerLoginFailure:
		frame, err := parsePlayerLoginFailureFrame(payload[1:])
		if err != nil {
			return nil, err
		}
		return &PlayerLoginOutcome{Admitted: false, FailReason: frame.Reason}, nil
	default:
		return nil, fmt.Errorf("realmlink: unexpected PlayerLoginRequest reply opcode 0x%02x", payload[0])
	}
}

// UpdateCurrentPlayers reports the realm's live player count (spec §4.3
// periodic uplink traffic).
func (c *Client) UpdateCurrentPlayers(current int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := constants.PacketHeaderSize
	n := writeUpdateCurrentPlayersFrame(c.sendBuf[pos:], current)
	return WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// KeepAlive sends the periodic uplink heartbeat (spec §4.3, §5 cadence).
func (c *Client) KeepAlive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := constants.PacketHeaderSize
	c.sendBuf[pos] = OpcodeKeepAlive
	return WritePacket(c.conn, c.cipher, c.sendBuf, 1)
}

// Logout tells the login service an account left this realm.
func (c *Client) Logout(accountName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := constants.PacketHeaderSize
	n := writePlayerLogoutFrame(c.sendBuf[pos:], accountName)
	return WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// SendTutorialData writes an account's tutorial-progress blob back to the
// login service for persistence.
func (c *Client) SendTutorialData(accountName string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := constants.PacketHeaderSize
	n := writeTutorialDataFrame(c.sendBuf[pos:], accountName, data)
	return WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// RunKeepAlive sends a KeepAlive on interval until ctx is cancelled,
// logging nothing itself — callers decide how to surface errors.
func (c *Client) RunKeepAlive(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.KeepAlive(); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
