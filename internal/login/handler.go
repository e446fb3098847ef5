package login

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/db"
	"github.com/realmbroker/realmd/internal/srp"
)

// Handler drives the login session FSM (spec §4.3) for one connection at
// a time; Server creates one Handler-bound Client per accepted socket.
type Handler struct {
	accounts AccountRepository
	realms   *db.RealmRepository
	group    *srp.Group
}

// NewHandler wires the FSM to its stores and the fixed SRP-6a group.
func NewHandler(accounts AccountRepository, realms *db.RealmRepository) *Handler {
	return &Handler{accounts: accounts, realms: realms, group: srp.DefaultGroup}
}

// HandlePacket dispatches one client frame by (state, opcode), writing
// the reply into buf. Returns bytes written (0 = nothing to send) and
// whether the connection stays open.
func (h *Handler) HandlePacket(ctx context.Context, c *Client, opcode byte, body, buf []byte) (int, bool, error) {
	c.Touch()
	state := c.State()

	switch opcode {
	case OpcodeLogonChallenge:
		if state != StateNew {
			return 0, false, fmt.Errorf("login: duplicate LogonChallenge in state %s", state)
		}
		return h.handleLogonChallenge(ctx, c, body, buf)

	case OpcodeReconnectChallenge:
		if state != StateNew {
			return 0, false, fmt.Errorf("login: duplicate ReconnectChallenge in state %s", state)
		}
		return h.handleReconnectChallenge(ctx, c, body, buf)

	case OpcodeLogonProof:
		if state != StateChallengeSent {
			return 0, false, fmt.Errorf("login: LogonProof in state %s", state)
		}
		return h.handleLogonProof(ctx, c, body, buf)

	case OpcodeReconnectProof:
		if state != StateReconnectChallengeSent {
			return 0, false, fmt.Errorf("login: ReconnectProof in state %s", state)
		}
		return h.handleReconnectProof(ctx, c, body, buf)

	case OpcodeRealmList:
		if !state.authenticated() {
			return 0, false, fmt.Errorf("login: RealmList in state %s", state)
		}
		return h.handleRealmList(ctx, c, buf)

	default:
		return 0, false, fmt.Errorf("login: unknown opcode 0x%02x", opcode)
	}
}

func (h *Handler) handleLogonChallenge(ctx context.Context, c *Client, body, buf []byte) (int, bool, error) {
	req, err := ParseLogonChallengeRequest(body)
	if err != nil {
		return 0, false, err
	}

	if req.Build != SupportedBuild {
		n := WriteLogonChallengeFail(buf, ResultFailVersionInvalid)
		return n, false, nil
	}

	username := strings.ToUpper(req.Username)
	account, err := h.accounts.GetAccount(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("looking up account %q: %w", username, err)
	}

	result := byte(ResultSuccess)
	var s, v []byte

	switch {
	case account == nil:
		// Fabricate an (s, v) pair from a random hash so the reply has the
		// exact same shape as a genuine account (spec §8 property 2,
		// "constant-shape challenge"); the real rejection happens at
		// LogonProof, since no client can ever complete a valid proof
		// against a verifier it never agreed on.
		result = ResultFailUnknownAccount
		randomHash := make([]byte, 20)
		if _, err := rand.Read(randomHash); err != nil {
			return 0, false, fmt.Errorf("generating fabricated verifier: %w", err)
		}
		s, v, err = h.group.DeriveVerifier(randomHash)
		if err != nil {
			return 0, false, fmt.Errorf("deriving fabricated verifier: %w", err)
		}

	case len(account.SRPSalt) == constants.SaltLen && len(account.SRPVerifier) == constants.VerifierLen:
		// Cached path is authoritative: do not recompute (s, v) on every
		// login, or a successful reconnect later would invalidate itself.
		s, v = account.SRPSalt, account.SRPVerifier

	default:
		s, v, err = h.group.DeriveVerifier(account.PasswordHash)
		if err != nil {
			return 0, false, fmt.Errorf("deriving verifier for %q: %w", username, err)
		}
		if err := h.accounts.SaveVerifier(ctx, username, s, v); err != nil {
			return 0, false, fmt.Errorf("saving verifier for %q: %w", username, err)
		}
	}

	ch, err := h.group.NewChallenge(v)
	if err != nil {
		return 0, false, fmt.Errorf("building challenge: %w", err)
	}

	c.BeginChallenge(username, s, v, ch)
	c.SetState(StateChallengeSent)

	n := WriteLogonChallengeBody(buf, result, ch.B, []byte{byte(h.group.Generator())}, h.group.Modulus(), s, ch.Unk3[:])
	return n, true, nil
}

func (h *Handler) handleLogonProof(ctx context.Context, c *Client, body, buf []byte) (int, bool, error) {
	req, err := ParseLogonProofRequest(body)
	if err != nil {
		return 0, false, err
	}

	username := c.Account()
	s, v, ch := c.Challenge()

	proof, err := h.group.VerifyProof(username, s, v, req.A, req.M1, ch.PrivateB())
	if err != nil {
		switch err {
		case srp.ErrInvalidA, srp.ErrProofMismatch:
			n := WriteLogonProofFail(buf, ResultFailUnknownAccount)
			return n, false, nil
		default:
			return 0, false, fmt.Errorf("verifying proof for %q: %w", username, err)
		}
	}

	if err := h.accounts.SaveSessionKey(ctx, username, proof.K); err != nil {
		return 0, false, fmt.Errorf("saving session key for %q: %w", username, err)
	}

	c.SetState(StateProofValidated)
	slog.Info("login proof accepted", "account", username, "ip", c.IP())

	n := WriteLogonProofSuccess(buf, proof.ServerHash)
	return n, true, nil
}

func (h *Handler) handleReconnectChallenge(ctx context.Context, c *Client, body, buf []byte) (int, bool, error) {
	req, err := ParseReconnectChallengeRequest(body)
	if err != nil {
		return 0, false, err
	}
	username := strings.ToUpper(req.Username)

	account, err := h.accounts.GetAccount(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("looking up account %q: %w", username, err)
	}
	if account == nil || len(account.SessionKeyK) == 0 {
		n := WriteReconnectChallenge(buf, ResultFailUnknownAccount, nil)
		return n, false, nil
	}

	reconnectProof, err := srp.NewReconnectChallenge()
	if err != nil {
		return 0, false, fmt.Errorf("generating reconnect challenge: %w", err)
	}

	c.BeginReconnect(username, reconnectProof)
	c.SetState(StateReconnectChallengeSent)

	n := WriteReconnectChallenge(buf, ResultSuccess, reconnectProof)
	return n, true, nil
}

func (h *Handler) handleReconnectProof(ctx context.Context, c *Client, body, buf []byte) (int, bool, error) {
	req, err := ParseReconnectProofRequest(body)
	if err != nil {
		return 0, false, err
	}

	username := c.Account()
	account, err := h.accounts.GetAccount(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("looking up account %q: %w", username, err)
	}
	if account == nil {
		n := WriteReconnectProof(buf, ResultFailUnknownAccount)
		return n, false, nil
	}

	reconnectProof := c.ReconnectProof()
	if !srp.CheckReconnectProof(username, req.R1, reconnectProof, account.SessionKeyK, req.R2) {
		n := WriteReconnectProof(buf, ResultFailUnknownAccount)
		return n, false, nil
	}

	c.SetState(StateReconnectProofValidated)
	n := WriteReconnectProof(buf, ResultSuccess)
	return n, true, nil
}

func (h *Handler) handleRealmList(ctx context.Context, c *Client, buf []byte) (int, bool, error) {
	if !c.AllowRealmListRequest(time.Now(), constants.RealmListWindow, constants.RealmListBurst) {
		return 0, false, fmt.Errorf("login: realm-list rate limit exceeded")
	}

	descriptors, err := h.realms.ListAuthenticated(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("listing realms: %w", err)
	}
	if len(descriptors) > constants.MaxOnlineRealms {
		descriptors = descriptors[:constants.MaxOnlineRealms]
	}

	entries := make([]RealmListEntry, len(descriptors))
	for i, d := range descriptors {
		entries[i] = RealmListEntry{
			Name:           d.VisibleName,
			Address:        fmt.Sprintf("%s:%d", d.Host, d.Port),
			CurrentPlayers: byte(min(int(d.CurrentPlayers), 255)),
		}
	}

	c.SetState(StateRealmListServed)
	n := WriteRealmList(buf, entries)
	return n, true, nil
}
