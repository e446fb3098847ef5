package realmlink

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/realmbroker/realmd/internal/db"
	"github.com/realmbroker/realmd/internal/login"
)

// Handler dispatches frames arriving on a realm's uplink connection to the
// login service's account and realm stores.
type Handler struct {
	accounts login.AccountRepository
	realms   *db.RealmRepository
}

// NewHandler creates a handler wired to the login service's stores.
func NewHandler(accounts login.AccountRepository, realms *db.RealmRepository) *Handler {
	return &Handler{accounts: accounts, realms: realms}
}

// hashUplinkPassword derives the comparison hash for a realm's shared
// uplink secret (spec §4.3: "login verifies shared secret"). Stored
// alongside the realm row as uplink_password_hash.
func hashUplinkPassword(internalName, password string) []byte {
	d := sha1.New()
	d.Write([]byte(internalName + ":" + password))
	return d.Sum(nil)
}

// HandlePacket dispatches one frame by opcode. Writes the reply into buf
// and returns the number of bytes written (0 = nothing to send) and
// whether the connection should stay open.
func (h *Handler) HandlePacket(ctx context.Context, conn *Connection, opcode byte, body, buf []byte) (int, bool, error) {
	if !conn.Authenticated() && opcode != OpcodeRealmLogin {
		return 0, false, fmt.Errorf("realmlink: opcode 0x%02x before RealmLogin", opcode)
	}

	switch opcode {
	case OpcodeRealmLogin:
		return h.handleRealmLogin(ctx, conn, body, buf)
	case OpcodeUpdateCurrentPlayers:
		return h.handleUpdateCurrentPlayers(ctx, conn, body, buf)
	case OpcodePlayerLoginRequest:
		return h.handlePlayerLoginRequest(ctx, conn, body, buf)
	case OpcodePlayerLogout:
		return h.handlePlayerLogout(ctx, conn, body, buf)
	case OpcodeKeepAlive:
		conn.Touch()
		return 0, true, nil
	case OpcodeTutorialData:
		return h.handleTutorialData(ctx, conn, body, buf)
	default:
		return 0, false, fmt.Errorf("realmlink: unknown opcode 0x%02x", opcode)
	}
}

func (h *Handler) handleRealmLogin(ctx context.Context, conn *Connection, body, buf []byte) (int, bool, error) {
	frame, err := ParseRealmLoginFrame(body)
	if err != nil {
		return 0, false, err
	}
	if frame.ProtocolVersion != ProtocolVersion {
		n := LoginResult(buf, LoginResultUnknownRealm)
		return n, false, fmt.Errorf("realmlink: realm %q speaks protocol %d, want %d", frame.InternalName, frame.ProtocolVersion, ProtocolVersion)
	}

	descriptor, storedHash, err := h.realms.GetByInternalName(ctx, frame.InternalName)
	if err != nil {
		return 0, false, fmt.Errorf("looking up realm %q: %w", frame.InternalName, err)
	}
	if descriptor == nil {
		n := LoginResult(buf, LoginResultUnknownRealm)
		return n, false, nil
	}

	given := hashUplinkPassword(frame.InternalName, frame.Password)
	if subtle.ConstantTimeCompare(given, storedHash) != 1 {
		n := LoginResult(buf, LoginResultInvalidPassword)
		return n, false, nil
	}

	if err := h.realms.MarkOnline(ctx, descriptor.RealmID, frame.VisibleName, frame.Host, int(frame.Port)); err != nil {
		return 0, false, fmt.Errorf("marking realm %q online: %w", frame.InternalName, err)
	}

	conn.Authenticate(descriptor.RealmID, frame.InternalName)
	conn.Touch()
	slog.Info("realm uplink authenticated", "realm", frame.InternalName, "realm_id", descriptor.RealmID, "ip", conn.IP())

	n := LoginResult(buf, LoginResultOk)
	return n, true, nil
}

func (h *Handler) handleUpdateCurrentPlayers(ctx context.Context, conn *Connection, body, _ []byte) (int, bool, error) {
	frame, err := ParseUpdateCurrentPlayersFrame(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if err := h.realms.UpdatePlayerCount(ctx, conn.RealmID(), frame.Current); err != nil {
		return 0, false, fmt.Errorf("updating player count: %w", err)
	}
	return 0, true, nil
}

func (h *Handler) handlePlayerLoginRequest(ctx context.Context, conn *Connection, body, buf []byte) (int, bool, error) {
	frame, err := ParsePlayerLoginRequestFrame(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()

	account, err := h.accounts.GetAccount(ctx, frame.AccountName)
	if err != nil {
		return 0, false, fmt.Errorf("looking up account %q: %w", frame.AccountName, err)
	}
	if account == nil {
		n := PlayerLoginFailure(buf, frame.AccountName, PlayerLoginFailureNoAccount)
		return n, true, nil
	}
	if len(account.SessionKeyK) == 0 {
		n := PlayerLoginFailure(buf, frame.AccountName, PlayerLoginFailureNotOnLogin)
		return n, true, nil
	}

	k := account.SessionKeyK

	// The session key is single-use across the login→realm handoff: once a
	// realm claims it, a stale K can't be replayed for a second handoff.
	if err := h.accounts.ClearSessionKey(ctx, frame.AccountName); err != nil {
		return 0, false, fmt.Errorf("clearing session key for %q: %w", frame.AccountName, err)
	}

	n := PlayerLoginSuccess(buf, frame.AccountName, k, account.SRPSalt, account.SRPVerifier, account.TutorialData)
	return n, true, nil
}

func (h *Handler) handlePlayerLogout(_ context.Context, conn *Connection, body, _ []byte) (int, bool, error) {
	if _, err := ParsePlayerLogoutFrame(body); err != nil {
		return 0, false, err
	}
	conn.Touch()
	return 0, true, nil
}

func (h *Handler) handleTutorialData(ctx context.Context, conn *Connection, body, _ []byte) (int, bool, error) {
	frame, err := ParseTutorialDataFrame(body)
	if err != nil {
		return 0, false, err
	}
	conn.Touch()
	if err := h.accounts.SaveTutorialData(ctx, frame.AccountName, frame.Data); err != nil {
		return 0, false, fmt.Errorf("saving tutorial data for %q: %w", frame.AccountName, err)
	}
	return 0, true, nil
}
