package worldlink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/realmbroker/realmd/internal/proxy"
)

// Handler dispatches frames arriving on a world node's uplink connection,
// updating the registry and calling back into the realm's client table via
// ClientRouter.
type Handler struct {
	router   ClientRouter
	registry *Registry
	guard    *proxy.Guard
}

// NewHandler creates a handler wired to the realm's client router, the
// world-node registry, and the proxy ordering guard the realm shares with
// its client-facing side.
func NewHandler(router ClientRouter, registry *Registry, guard *proxy.Guard) *Handler {
	return &Handler{router: router, registry: registry, guard: guard}
}

// SetRouter wires the handler to its ClientRouter after construction, for
// the realm/worldlink pair's circular dependency: the realm's Server needs
// a constructed worldlink.Server to target, and worldlink.Server needs the
// realm's Server as its ClientRouter. Must be called before Run/Serve
// accepts any connections.
func (h *Handler) SetRouter(router ClientRouter) {
	h.router = router
}

// HandlePacket dispatches one frame by opcode. Writes the reply into buf
// and returns the number of bytes written (0 = nothing to send) and
// whether the connection should stay open.
func (h *Handler) HandlePacket(ctx context.Context, conn *Connection, opcode byte, body, buf []byte) (int, bool, error) {
	if !conn.Authenticated() && opcode != OpLogin {
		return 0, false, fmt.Errorf("worldlink: opcode 0x%02x before Login", opcode)
	}

	switch opcode {
	case OpLogin:
		return h.handleLogin(conn, body, buf)
	case OpKeepAlive:
		conn.Touch()
		return 0, true, nil
	case OpWorldInstanceEntered:
		return h.handleWorldInstanceEntered(conn, body)
	case OpWorldInstanceLeft:
		return h.handleWorldInstanceLeft(conn, body)
	case OpWorldInstanceError:
		return h.handleWorldInstanceError(conn, body)
	case OpClientProxyPacketUp:
		return h.handleClientProxyPacketUp(conn, body)
	case OpCharacterData:
		return h.handleCharacterData(conn, body)
	case OpCharacterGroupUpdate:
		return h.handleCharacterGroupUpdate(conn, body)
	case OpMailNotify:
		return h.handleMailNotify(conn, body)
	case OpTeleportRequest, OpQuestUpdate, OpCharacterSpawned:
		// World-simulation internals are out of scope; logged for
		// observability only.
		conn.Touch()
		slog.Debug("worldlink: world-internal notification", "opcode", opcode, "ip", conn.IP())
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("worldlink: unknown opcode 0x%02x", opcode)
	}
}

func (h *Handler) handleLogin(conn *Connection, body, buf []byte) (int, bool, error) {
	frame, err := ParseLoginFrame(body)
	if err != nil {
		n := WriteLoginAnswer(buf, LoginAnswerRejected)
		return n, false, err
	}
	conn.Authenticate(frame.MapIDs)
	conn.Touch()
	h.registry.Register(conn, frame.MapIDs)
	slog.Info("world node authenticated", "ip", conn.IP(), "maps", frame.MapIDs)
	n := WriteLoginAnswer(buf, LoginAnswerOk)
	return n, true, nil
}

func (h *Handler) handleWorldInstanceEntered(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseWorldInstanceEntered(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if frame.InstanceID != 0 {
		conn.AddInstance(frame.InstanceID)
		h.registry.BindInstance(frame.InstanceID, conn)
	}
	h.guard.MarkLoggedIn(frame.CharacterID)
	if err := h.router.WorldInstanceEntered(frame.CharacterID, frame.InstanceID); err != nil {
		return 0, false, fmt.Errorf("worldlink: WorldInstanceEntered callback: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleWorldInstanceLeft(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseWorldInstanceLeft(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	h.guard.MarkLoggedOut(frame.CharacterID)
	if err := h.router.WorldInstanceLeft(frame.CharacterID, frame.Reason); err != nil {
		return 0, false, fmt.Errorf("worldlink: WorldInstanceLeft callback: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleWorldInstanceError(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseWorldInstanceError(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	h.guard.MarkLoggedOut(frame.CharacterID)
	if err := h.router.WorldInstanceError(frame.CharacterID, frame.Reason); err != nil {
		return 0, false, fmt.Errorf("worldlink: WorldInstanceError callback: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleClientProxyPacketUp(conn *Connection, body []byte) (int, bool, error) {
	p, err := proxy.Parse(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if !h.guard.Allowed(p.CharacterID) {
		slog.Warn("worldlink: dropping proxy packet for character not logged in", "character_id", p.CharacterID)
		return 0, true, nil
	}
	if err := h.router.DeliverProxyPacket(p.CharacterID, p.Opcode, p.Body); err != nil {
		return 0, false, fmt.Errorf("worldlink: DeliverProxyPacket: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleCharacterData(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseCharacterData(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if err := h.router.SaveCharacterPosition(frame.CharacterID, frame.MapID, frame.X, frame.Y, frame.Z, frame.Heading); err != nil {
		return 0, false, fmt.Errorf("worldlink: SaveCharacterPosition: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleCharacterGroupUpdate(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseCharacterGroupUpdate(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if err := h.router.UpdateGroupID(frame.CharacterID, frame.GroupID); err != nil {
		return 0, false, fmt.Errorf("worldlink: UpdateGroupID: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handleMailNotify(conn *Connection, body []byte) (int, bool, error) {
	frame, err := ParseMailNotify(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if err := h.router.UpdateUnreadMail(frame.CharacterID, frame.Unread); err != nil {
		return 0, false, fmt.Errorf("worldlink: UpdateUnreadMail: %w", err)
	}
	return 0, true, nil
}
