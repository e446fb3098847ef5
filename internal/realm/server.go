package realm

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/proxy"
	"github.com/realmbroker/realmd/internal/protocol"
	"github.com/realmbroker/realmd/internal/worldlink"
)

// Server is the realm's client-facing listener (spec §4.4), the
// counterpart to internal/login's Server but carrying a whole play
// session instead of a single SRP handshake.
type Server struct {
	cfg     config.RealmServer
	handler *Handler

	registry *clientRegistry

	// Reads are pooled the way login/realmlink pool theirs; writes are not
	// — SendFrame (spec-driven by composite/async replies, see DESIGN.md)
	// allocates its own buffer per call instead of borrowing from a shared
	// pool, since several call sites hold no per-read buffer to borrow
	// from in the first place (world-uplink callbacks).
	readPool *protocol.BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires a client listener to the realm's uplinks and stores.
// It owns the clientRegistry so it can implement worldlink.ClientRouter
// and hand world-uplink callbacks straight to the right Client.
func NewServer(cfg config.RealmServer, uplink LoginUplink, world *worldlink.Server, guard *proxy.Guard, characters CharacterRepository, friends FriendRepository, groups GroupRepository) *Server {
	registry := newClientRegistry()
	return &Server{
		cfg:      cfg,
		handler:  NewHandler(cfg, uplink, world, guard, registry, characters, friends, groups),
		registry: registry,
		readPool: protocol.NewBytePool(constants.ClientReadBufSize),
	}
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.BindAddress:Port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("realm: listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("realm listener started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				slog.Error("failed to accept realm connection", "error", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func randomServerSeed() (uint32, error) {
	var buf [4]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("realm: generating server seed: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (s *Server) handleConnection(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()

	serverSeed, err := randomServerSeed()
	if err != nil {
		slog.Error("realm: failed to seed connection", "error", err)
		return
	}

	c, err := NewClient(netConn, serverSeed)
	if err != nil {
		slog.Error("failed to set up realm client", "error", err)
		return
	}

	challengeBuf := make([]byte, 4)
	n := writeAuthChallenge(challengeBuf, serverSeed)
	if err := c.SendFrame(byte(OpAuthChallenge), challengeBuf[:n]); err != nil {
		slog.Warn("realm: failed to send AuthChallenge", "ip", c.IP(), "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	idleTicker := time.NewTicker(s.cfg.ClientIdleTimeout / 3)
	defer idleTicker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-idleTicker.C:
				if c.IdleFor() > s.cfg.ClientIdleTimeout {
					slog.Info("realm client idle timeout", "ip", c.IP(), "account", c.Account())
					c.Close()
					return
				}
			}
		}
	}()

	defer s.cleanupClient(c)

	headerBuf := make([]byte, inboundHeaderLen)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		readBuf := s.readPool.Get(constants.ClientReadBufSize)
		opcode, body, err := readClientFrame(netConn, c.Recv(), c.Decoder(), headerBuf, readBuf)
		if err != nil {
			s.readPool.Put(readBuf)
			slog.Info("realm client disconnected", "ip", c.IP(), "account", c.Account(), "error", err)
			return
		}

		c.Touch()
		keepOpen, handleErr := s.handler.HandlePacket(ctx, c, opcode, body)
		if handleErr != nil {
			slog.Warn("realm packet error", "ip", c.IP(), "account", c.Account(), "opcode", opcode, "error", handleErr)
		}
		s.readPool.Put(readBuf)

		if !keepOpen {
			return
		}
	}
}

// cleanupClient removes a disconnecting client from every index it might
// be registered in and tells its bound world node, if any, that it left.
func (s *Server) cleanupClient(c *Client) {
	summary := c.SelectedCharacter()
	if summary == nil {
		return
	}
	s.registry.remove(summary.DatabaseID)
	s.handler.guard.MarkLoggedOut(summary.DatabaseID)
	if worldConn := c.BoundWorld(); worldConn != nil {
		leaveBuf := make([]byte, 16)
		n := worldlink.WriteLeaveWorldInstance(leaveBuf, summary.DatabaseID)
		if err := s.handler.world.SendToInstance(c.InstanceID(), 0, leaveBuf, n); err != nil {
			slog.Warn("realm: LeaveWorldInstance send on disconnect failed", "character_id", summary.DatabaseID, "error", err)
		}
	}
}

// --- worldlink.ClientRouter ---

func (s *Server) WorldInstanceEntered(characterID uint32, instanceID int64) error {
	c := s.registry.find(characterID)
	if c == nil {
		return fmt.Errorf("realm: WorldInstanceEntered for untracked character %d", characterID)
	}
	c.SetStatus(StatusLoggedIn)
	selected := c.SelectedCharacter()
	if selected == nil {
		return fmt.Errorf("realm: WorldInstanceEntered with no selected character for %d", characterID)
	}
	buf := make([]byte, 8)
	guid := model.PackGUID(selected.DatabaseID, constants.ObjectKindPlayer, uint32(s.cfg.RealmID))
	n := writeEnterWorld(buf, guid)
	return c.SendFrame(byte(OpEnterWorld), buf[:n])
}

func (s *Server) WorldInstanceLeft(characterID uint32, reason byte) error {
	c := s.registry.find(characterID)
	if c == nil {
		return nil
	}
	s.handler.guard.MarkLoggedOut(characterID)
	c.SetStatus(StatusAuthenticated)
	c.BindWorld(nil, 0)
	return nil
}

func (s *Server) WorldInstanceError(characterID uint32, reason byte) error {
	c := s.registry.find(characterID)
	if c == nil {
		return nil
	}
	buf := make([]byte, 1)
	n := writeCharLoginFailed(buf, reason)
	s.handler.guard.MarkLoggedOut(characterID)
	c.SetStatus(StatusAuthenticated)
	return c.SendFrame(byte(OpEnterWorld), buf[:n])
}

func (s *Server) DeliverProxyPacket(characterID uint32, opcode uint16, body []byte) error {
	c := s.registry.find(characterID)
	if c == nil {
		return fmt.Errorf("realm: proxy delivery for untracked character %d", characterID)
	}
	return c.SendFrame(byte(opcode), body)
}

func (s *Server) SaveCharacterPosition(characterID uint32, mapID, x, y, z, heading int32) error {
	c := s.registry.find(characterID)
	if c == nil {
		return nil
	}
	if gc := c.GameCharacter(); gc != nil {
		gc.MapID, gc.PosX, gc.PosY, gc.PosZ, gc.Heading = mapID, x, y, z, heading
	}
	return nil
}

func (s *Server) UpdateGroupID(characterID uint32, groupID int64) error {
	c := s.registry.find(characterID)
	if c == nil {
		return nil
	}
	c.SetGroupID(groupID)
	return nil
}

func (s *Server) UpdateUnreadMail(characterID uint32, unread int32) error {
	c := s.registry.find(characterID)
	if c == nil {
		return nil
	}
	c.SetUnreadMail(unread)
	return nil
}
