package login

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
	"github.com/realmbroker/realmd/internal/protocol"
)

// Server is the login service's client-facing listener (spec §4.3).
type Server struct {
	cfg     config.LoginServer
	handler *Handler

	sendPool *protocol.BytePool
	readPool *protocol.BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires a client listener to the account/realm stores.
func NewServer(cfg config.LoginServer, accounts AccountRepository, realms *db.RealmRepository) *Server {
	return &Server{
		cfg:      cfg,
		handler:  NewHandler(accounts, realms),
		sendPool: protocol.NewBytePool(constants.ClientSendBufSize),
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
		return fmt.Errorf("login: listening on %s: %w", addr, err)
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
	slog.Info("login listener started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				slog.Error("failed to accept login connection", "error", err)
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

	c, err := NewClient(netConn)
	if err != nil {
		slog.Error("failed to set up login client", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	idleTicker := time.NewTicker(constants.LoginIdleTimeout / 3)
	defer idleTicker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-idleTicker.C:
				if c.IdleFor() > constants.LoginIdleTimeout {
					slog.Info("login client idle timeout", "ip", c.IP(), "account", c.Account())
					c.Close()
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

		readBuf := s.readPool.Get(constants.ClientReadBufSize)
		payload, err := protocol.ReadPlainFrame(netConn, readBuf)
		if err != nil {
			s.readPool.Put(readBuf)
			slog.Info("login client disconnected", "ip", c.IP(), "account", c.Account(), "error", err)
			return
		}
		if len(payload) == 0 {
			s.readPool.Put(readBuf)
			continue
		}

		opcode := payload[0]
		body := payload[1:]

		sendBuf := s.sendPool.Get(constants.ClientSendBufSize)
		n, ok, handleErr := s.handler.HandlePacket(ctx, c, opcode, body, sendBuf[constants.PacketHeaderSize:])
		if handleErr != nil {
			slog.Warn("login packet error", "ip", c.IP(), "account", c.Account(), "error", handleErr)
		}
		if n > 0 {
			if err := protocol.WritePlainFrame(netConn, sendBuf, n); err != nil {
				slog.Error("failed to write login reply", "ip", c.IP(), "error", err)
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
