package worldlink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/protocol"
	"github.com/realmbroker/realmd/internal/proxy"
)

// Server is the realm's world-node uplink listener (spec §5 "three-tier
// topology"): every world node simulating one or more maps opens exactly
// one long-lived connection here.
type Server struct {
	cfg      config.RealmServer
	handler  *Handler
	registry *Registry

	sendPool *protocol.BytePool
	readPool *protocol.BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a world-uplink listener wired to router, the realm's
// client-callback surface.
func NewServer(cfg config.RealmServer, router ClientRouter, guard *proxy.Guard) *Server {
	registry := NewRegistry()
	return &Server{
		cfg:      cfg,
		handler:  NewHandler(router, registry, guard),
		registry: registry,
		sendPool: protocol.NewBytePool(constants.WorldLinkSendBufSize),
		readPool: protocol.NewBytePool(constants.WorldLinkReadBufSize),
	}
}

// Registry exposes the world-node registry so the realm's client handler
// can resolve a character's map to its owning connection.
func (s *Server) Registry() *Registry { return s.registry }

// SetRouter completes construction when router and Server have a circular
// dependency (realm.Server needs this Server to target, this Server needs
// realm.Server as its ClientRouter). Call before Run/Serve.
func (s *Server) SetRouter(router ClientRouter) {
	s.handler.SetRouter(router)
}

// Addr returns the listener's address, or nil before Run/Serve starts it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting new uplinks.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.WorldLinkBindAddress:WorldLinkPort and serves until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.WorldLinkBindAddress, s.cfg.WorldLinkPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("worldlink: listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener, useful for tests
// that want a random port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("world uplink listener started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				slog.Error("failed to accept world uplink", "error", err)
				continue
			}
		}
		wg.Go(func() {
			s.handleConnection(ctx, conn)
		})
	}
}

func (s *Server) handleConnection(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()

	conn, err := NewConnection(netConn)
	if err != nil {
		slog.Error("failed to set up world uplink connection", "error", err)
		return
	}
	defer s.registry.Unregister(conn)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	idleTicker := time.NewTicker(constants.UplinkIdleTimeout / 3)
	defer idleTicker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-idleTicker.C:
				if conn.IdleFor() > constants.UplinkIdleTimeout {
					slog.Warn("world uplink idle timeout", "ip", conn.IP())
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		readBuf := s.readPool.Get(constants.WorldLinkReadBufSize)
		payload, err := protocol.ReadPlainFrame(netConn, readBuf)
		if err != nil {
			s.readPool.Put(readBuf)
			slog.Info("world uplink disconnected", "ip", conn.IP(), "error", err)
			return
		}
		if len(payload) == 0 {
			s.readPool.Put(readBuf)
			continue
		}

		opcode := payload[0]
		body := payload[1:]

		sendBuf := s.sendPool.Get(constants.WorldLinkSendBufSize)
		n, ok, handleErr := s.handler.HandlePacket(ctx, conn, opcode, body, sendBuf[constants.PacketHeaderSize:])
		if handleErr != nil {
			slog.Error("world uplink packet error", "ip", conn.IP(), "error", handleErr)
		}
		if n > 0 {
			if err := protocol.WritePlainFrame(netConn, sendBuf, n); err != nil {
				slog.Error("failed to write world uplink reply", "ip", conn.IP(), "error", err)
				ok = false
			}
		}

		s.readPool.Put(readBuf)
		s.sendPool.Put(sendBuf)

		if !ok {
			return
		}
	}
}

// SendToInstance writes a pre-encoded Realm->World frame (buf[:n], opcode first
// byte) to the world node owning instanceID, or mapID if instanceID is 0.
func (s *Server) SendToInstance(instanceID int64, mapID int32, buf []byte, n int) error {
	conn := s.registry.FindByInstance(instanceID)
	if conn == nil {
		conn = s.registry.FindByMap(mapID)
	}
	if conn == nil {
		return fmt.Errorf("worldlink: no world node for instance %d / map %d", instanceID, mapID)
	}
	sendBuf := s.sendPool.Get(constants.WorldLinkSendBufSize)
	defer s.sendPool.Put(sendBuf)
	copy(sendBuf[constants.PacketHeaderSize:], buf[:n])
	return protocol.WritePlainFrame(conn.Conn(), sendBuf, n)
}
