package realmlink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/db"
	"github.com/realmbroker/realmd/internal/login"
	"github.com/realmbroker/realmd/internal/protocol"
)

// Server is the login service's realm-uplink listener (spec §4.3): every
// realm in the cluster opens exactly one long-lived connection here.
type Server struct {
	cfg     config.LoginServer
	handler *Handler

	sendPool *protocol.BytePool
	readPool *protocol.BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a realm-uplink listener wired to the login service's
// account and realm stores.
func NewServer(cfg config.LoginServer, accounts login.AccountRepository, realms *db.RealmRepository) *Server {
	return &Server{
		cfg:      cfg,
		handler:  NewHandler(accounts, realms),
		sendPool: protocol.NewBytePool(constants.RealmLinkSendBufSize),
		readPool: protocol.NewBytePool(constants.RealmLinkReadBufSize),
	}
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

// Run listens on cfg.RealmUplinkHost:RealmUplinkPort and serves until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.RealmUplinkHost, s.cfg.RealmUplinkPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("realmlink: listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener, useful for
// tests that want a random port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("realm uplink listener started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				slog.Error("failed to accept realm uplink", "error", err)
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
		slog.Error("failed to set up realm uplink connection", "error", err)
		return
	}

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
					slog.Warn("realm uplink idle timeout", "ip", conn.IP(), "realm", conn.InternalName())
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.cleanup(conn)
			return
		default:
		}

		readBuf := s.readPool.Get(constants.RealmLinkReadBufSize)
		payload, err := ReadPacket(netConn, conn.Cipher(), readBuf)
		if err != nil {
			s.readPool.Put(readBuf)
			slog.Info("realm uplink disconnected", "ip", conn.IP(), "realm", conn.InternalName(), "error", err)
			s.cleanup(conn)
			return
		}
		if len(payload) == 0 {
			s.readPool.Put(readBuf)
			continue
		}

		opcode := payload[0]
		body := payload[1:]

		sendBuf := s.sendPool.Get(constants.RealmLinkSendBufSize)
		n, ok, handleErr := s.handler.HandlePacket(ctx, conn, opcode, body, sendBuf[constants.PacketHeaderSize:])
		if handleErr != nil {
			slog.Error("realm uplink packet error", "ip", conn.IP(), "realm", conn.InternalName(), "error", handleErr)
		}
		if n > 0 {
			if err := WritePacket(netConn, conn.Cipher(), sendBuf, n); err != nil {
				slog.Error("failed to write realm uplink reply", "ip", conn.IP(), "error", err)
				ok = false
			}
		}

		s.readPool.Put(readBuf)
		s.sendPool.Put(sendBuf)

		if !ok {
			s.cleanup(conn)
			return
		}
	}
}

func (s *Server) cleanup(conn *Connection) {
	if !conn.Authenticated() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.handler.realms.MarkOffline(ctx, conn.RealmID()); err != nil {
		slog.Error("failed to mark realm offline", "realm", conn.InternalName(), "error", err)
	}
}
