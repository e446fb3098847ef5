package realm

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/proxy"
	"github.com/realmbroker/realmd/internal/worldlink"
)

// Handler dispatches frames arriving on a client connection by (status,
// opcode) (spec §4.4 "Realm session FSM"), delegating persistence to the
// character/friend/group stores and unrecognised traffic to the bound
// world node.
type Handler struct {
	cfg      config.RealmServer
	realmID  int32
	uplink   LoginUplink
	world    *worldlink.Server
	guard    *proxy.Guard
	registry *clientRegistry

	characters CharacterRepository
	friends    FriendRepository
	groups     GroupRepository
}

// NewHandler wires a Handler to the realm's stores and uplinks.
func NewHandler(cfg config.RealmServer, uplink LoginUplink, world *worldlink.Server, guard *proxy.Guard, registry *clientRegistry, characters CharacterRepository, friends FriendRepository, groups GroupRepository) *Handler {
	return &Handler{
		cfg:        cfg,
		realmID:    cfg.RealmID,
		uplink:     uplink,
		world:      world,
		guard:      guard,
		registry:   registry,
		characters: characters,
		friends:    friends,
		groups:     groups,
	}
}

// HandlePacket dispatches one client frame. It returns whether the
// connection should stay open; replies (zero, one or several frames) are
// written directly through Client.SendFrame rather than returned, since
// several sequences here are not a single request/reply pair.
func (h *Handler) HandlePacket(ctx context.Context, c *Client, opcode uint16, body []byte) (bool, error) {
	if c.Blocked() {
		return false, fmt.Errorf("realm: opcode 0x%04x arrived while connection blocked", opcode)
	}

	mask, known := requiredStatus[opcode]
	if !known {
		if c.Status() != StatusLoggedIn {
			return true, fmt.Errorf("realm: opcode 0x%04x not valid in status %s", opcode, c.Status())
		}
		return true, h.forwardProxyUp(c, opcode, body)
	}
	if !mask.allows(c.Status()) {
		return false, fmt.Errorf("realm: opcode 0x%04x not valid in status %s", opcode, c.Status())
	}

	switch opcode {
	case OpAuthSession:
		return h.handleAuthSession(ctx, c, body)
	case OpPing:
		c.Touch()
		return true, nil
	case OpCharEnum:
		return h.handleCharEnum(ctx, c)
	case OpCharCreate:
		return h.handleCharCreate(ctx, c, body)
	case OpCharDelete:
		return h.handleCharDelete(ctx, c, body)
	case OpCharRename:
		return h.handleCharRename(ctx, c, body)
	case OpCharSelect:
		return h.handleCharSelect(ctx, c, body)
	case OpWho:
		return h.handleWho(c, body)
	case OpMoveWorldPortAck:
		return h.handleMoveWorldPortAck(ctx, c, body)
	case OpLogoutRequest:
		return h.handleLogoutRequest(ctx, c)
	default:
		return false, fmt.Errorf("realm: unhandled opcode 0x%04x in status %s", opcode, c.Status())
	}
}

// computeAuthHash reproduces the client's proof that it holds the same
// session key K the login service just handed the realm (spec §4.4 step
// 3): SHA1(accountName || 0u32 || clientSeed || serverSeed || K).
func computeAuthHash(accountName string, clientSeed, serverSeed uint32, k []byte) [20]byte {
	d := sha1.New()
	d.Write([]byte(accountName))
	var t [4]byte
	d.Write(t[:])
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], clientSeed)
	d.Write(seedBuf[:])
	binary.LittleEndian.PutUint32(seedBuf[:], serverSeed)
	d.Write(seedBuf[:])
	d.Write(k)
	var out [20]byte
	copy(out[:], d.Sum(nil))
	return out
}

func (h *Handler) handleAuthSession(_ context.Context, c *Client, body []byte) (bool, error) {
	frame, err := parseAuthSession(body)
	if err != nil {
		return false, err
	}
	if !c.BeginAuthSession(frame.ClientSeed) {
		return false, fmt.Errorf("realm: AuthSession already processed on this connection")
	}

	// Suspend further dispatch until the login round trip completes (spec
	// §5 "PacketParseResult::Block").
	c.Block()
	outcome, err := h.uplink.RequestPlayerLogin(frame.AccountName)
	c.Unblock()
	if err != nil {
		return false, fmt.Errorf("realm: PlayerLoginRequest for %q: %w", frame.AccountName, err)
	}
	if !outcome.Admitted {
		buf := make([]byte, 1)
		n := writeAuthResponse(buf, AuthFailBanned)
		_ = c.SendFrame(byte(OpAuthResponse), buf[:n])
		return false, nil
	}

	expected := computeAuthHash(frame.AccountName, frame.ClientSeed, c.ServerSeed(), outcome.SessionKeyK)
	if subtle.ConstantTimeCompare(expected[:], frame.ClientHash[:]) != 1 {
		buf := make([]byte, 1)
		n := writeAuthResponse(buf, AuthFailBadHash)
		_ = c.SendFrame(byte(OpAuthResponse), buf[:n])
		return false, nil
	}

	c.CompleteAuth(frame.AccountName, outcome.SessionKeyK, outcome.TutorialData)
	slog.Info("realm client authenticated", "account", frame.AccountName, "ip", c.IP())

	buf := make([]byte, 1)
	n := writeAuthResponse(buf, AuthOk)
	if err := c.SendFrame(byte(OpAuthResponse), buf[:n]); err != nil {
		return false, err
	}
	addonBuf := make([]byte, 1)
	n = writeAddonInfo(addonBuf)
	if err := c.SendFrame(byte(OpAddonInfo), addonBuf[:n]); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Handler) handleCharEnum(ctx context.Context, c *Client) (bool, error) {
	c.Block()
	defer c.Unblock()

	list, err := h.characters.ListByAccount(ctx, c.Account(), h.realmID)
	if err != nil {
		return false, fmt.Errorf("realm: CharEnum for %q: %w", c.Account(), err)
	}
	c.SetCharacters(list)

	buf := make([]byte, constants.ClientSendBufSize)
	n := writeCharEnumReply(buf, h.realmID, list)
	return true, c.SendFrame(byte(OpCharEnumReply), buf[:n])
}

func (h *Handler) handleCharCreate(ctx context.Context, c *Client, body []byte) (bool, error) {
	frame, err := parseCharCreate(body)
	if err != nil {
		return false, err
	}
	name := strings.TrimSpace(frame.Name)
	if name == "" {
		return true, h.replyCharCreate(c, CharCreateInvalidRace)
	}

	classes, ok := validRaceClass[frame.Race]
	if !ok || !classes[frame.ClassID] {
		return true, h.replyCharCreate(c, CharCreateInvalidRace)
	}

	count, err := h.characters.CountByAccount(ctx, c.Account(), h.realmID)
	if err != nil {
		return false, fmt.Errorf("realm: CharCreate counting for %q: %w", c.Account(), err)
	}
	if count >= h.cfg.MaxCharactersPerAccount {
		return true, h.replyCharCreate(c, CharCreateServerLimit)
	}

	if _, err := h.characters.Create(ctx, c.Account(), h.realmID, name, frame.Race, frame.ClassID); err != nil {
		slog.Warn("realm: CharCreate failed, assuming name collision", "name", name, "error", err)
		return true, h.replyCharCreate(c, CharCreateNameInUse)
	}
	if list, err := h.characters.ListByAccount(ctx, c.Account(), h.realmID); err == nil {
		c.SetCharacters(list)
	}
	return true, h.replyCharCreate(c, CharOk)
}

func (h *Handler) replyCharCreate(c *Client, result byte) error {
	buf := make([]byte, 1)
	n := writeCharCreateReply(buf, result)
	return c.SendFrame(byte(OpCharCreateReply), buf[:n])
}

func (h *Handler) handleCharDelete(ctx context.Context, c *Client, body []byte) (bool, error) {
	guid, err := parseCharacterGUID(body)
	if err != nil {
		return false, err
	}
	characterID := guid.UnpackDBID()

	if _, ok := c.FindCharacter(characterID); !ok {
		buf := make([]byte, 1)
		n := writeCharDeleteReply(buf, CharDeleteNotFound)
		return true, c.SendFrame(byte(OpCharDeleteReply), buf[:n])
	}

	if err := h.characters.SoftDelete(ctx, characterID); err != nil {
		return false, fmt.Errorf("realm: CharDelete %d: %w", characterID, err)
	}

	owners, err := h.friends.RemoveFromAllFriendLists(ctx, characterID)
	if err != nil {
		slog.Error("realm: CharDelete friend-list cleanup failed", "character_id", characterID, "error", err)
	} else {
		victimGUID := model.PackGUID(characterID, constants.ObjectKindPlayer, uint32(h.realmID))
		for _, ownerID := range owners {
			if online := h.registry.find(ownerID); online != nil {
				buf := make([]byte, 8)
				n := writeFriendRemoved(buf, victimGUID)
				_ = online.SendFrame(byte(OpFriendRemoved), buf[:n])
			}
		}
	}

	list, err := h.characters.ListByAccount(ctx, c.Account(), h.realmID)
	if err == nil {
		c.SetCharacters(list)
	}

	buf := make([]byte, 1)
	n := writeCharDeleteReply(buf, CharOk)
	return true, c.SendFrame(byte(OpCharDeleteReply), buf[:n])
}

func (h *Handler) handleCharRename(ctx context.Context, c *Client, body []byte) (bool, error) {
	frame, err := parseCharRename(body)
	if err != nil {
		return false, err
	}
	characterID := frame.CharacterID.UnpackDBID()
	summary, ok := c.FindCharacter(characterID)
	if !ok || !summary.AtLogin.HasRename() {
		buf := make([]byte, 64)
		n := writeCharRenameReply(buf, frame.CharacterID, frame.NewName, CharRenameNotAllowed)
		return true, c.SendFrame(byte(OpCharRenameReply), buf[:n])
	}

	newName := strings.TrimSpace(frame.NewName)
	if newName == "" {
		buf := make([]byte, 64)
		n := writeCharRenameReply(buf, frame.CharacterID, frame.NewName, CharRenameNotAllowed)
		return true, c.SendFrame(byte(OpCharRenameReply), buf[:n])
	}

	if err := h.characters.Rename(ctx, characterID, newName); err != nil {
		slog.Warn("realm: CharRename failed, assuming name collision", "name", newName, "error", err)
		buf := make([]byte, 64)
		n := writeCharRenameReply(buf, frame.CharacterID, frame.NewName, CharRenameNameInUse)
		return true, c.SendFrame(byte(OpCharRenameReply), buf[:n])
	}

	summary.Name = newName
	summary.AtLogin &^= model.AtLoginRename
	list := c.Characters()
	for i := range list {
		if list[i].DatabaseID == characterID {
			list[i] = summary
		}
	}
	c.SetCharacters(list)

	buf := make([]byte, 64)
	n := writeCharRenameReply(buf, frame.CharacterID, newName, CharOk)
	if err := c.SendFrame(byte(OpCharRenameReply), buf[:n]); err != nil {
		return false, err
	}

	// Rename broadcasts never cross realms (spec §9 open-question
	// decision): only this realm's currently-online clients are notified.
	bcastBuf := make([]byte, 64)
	n = writeCharRenamedBroadcast(bcastBuf, frame.CharacterID, newName)
	for _, other := range h.registry.all() {
		_ = other.SendFrame(byte(OpCharRenamedBcast), bcastBuf[:n])
	}
	return true, nil
}

func (h *Handler) handleCharSelect(ctx context.Context, c *Client, body []byte) (bool, error) {
	guid, err := parseCharacterGUID(body)
	if err != nil {
		return false, err
	}
	characterID := guid.UnpackDBID()

	summary, ok := c.FindCharacter(characterID)
	if !ok {
		buf := make([]byte, 1)
		n := writeCharLoginFailed(buf, CharSelectNotOwned)
		return true, c.SendFrame(byte(OpEnterWorld), buf[:n])
	}
	if summary.AtLogin.HasRename() {
		buf := make([]byte, 1)
		n := writeCharLoginFailed(buf, CharSelectPendingRename)
		return true, c.SendFrame(byte(OpEnterWorld), buf[:n])
	}

	gameChar, atLogin, err := h.characters.GetByID(ctx, characterID, h.realmID)
	if err != nil {
		return false, fmt.Errorf("realm: PlayerLogin loading character %d: %w", characterID, err)
	}
	if gameChar == nil || atLogin.HasRename() {
		buf := make([]byte, 1)
		n := writeCharLoginFailed(buf, CharSelectNotOwned)
		return true, c.SendFrame(byte(OpEnterWorld), buf[:n])
	}

	var instanceID int64
	if c.GroupID() != 0 {
		group, err := h.groups.Load(ctx, c.GroupID())
		if err != nil {
			slog.Warn("realm: failed to load group for instance binding", "group_id", c.GroupID(), "error", err)
		} else if group != nil {
			instanceID = group.InstanceBindings[gameChar.MapID]
		}
	}

	worldConn := h.world.Registry().FindByMap(gameChar.MapID)
	if instanceID != 0 {
		if bound := h.world.Registry().FindByInstance(instanceID); bound != nil {
			worldConn = bound
		}
	}
	if worldConn == nil {
		buf := make([]byte, 1)
		n := writeCharLoginFailed(buf, CharSelectNoWorldNode)
		return true, c.SendFrame(byte(OpEnterWorld), buf[:n])
	}

	c.SelectCharacter(summary)
	c.SetGameCharacter(gameChar)
	c.BindWorld(worldConn, instanceID)
	c.SetStatus(StatusTransferPending)
	h.registry.add(characterID, c)

	loginBuf := make([]byte, constants.WorldLinkSendBufSize)
	n := worldlink.WriteCharacterLogIn(loginBuf, worldlink.CharacterLogInFrame{
		CharacterID: characterID,
		InstanceID:  instanceID,
		Snapshot: worldlink.GameCharacterSnapshot{
			AccountLogin: gameChar.AccountLogin,
			Name:         gameChar.Name,
			MapID:        gameChar.MapID,
			X:            gameChar.PosX,
			Y:            gameChar.PosY,
			Z:            gameChar.PosZ,
			Heading:      gameChar.Heading,
		},
	})
	if err := h.world.SendToInstance(instanceID, gameChar.MapID, loginBuf, n); err != nil {
		c.SetStatus(StatusAuthenticated)
		h.registry.remove(characterID)
		buf := make([]byte, 1)
		m := writeCharLoginFailed(buf, CharSelectNoWorldNode)
		return true, c.SendFrame(byte(OpEnterWorld), buf[:m])
	}
	h.guard.MarkLoggedIn(characterID)
	return true, nil
}

func (h *Handler) handleWho(c *Client, body []byte) (bool, error) {
	if !c.AllowWho(time.Now(), h.cfg.WhoRequestCooldown) {
		return true, nil
	}
	if _, err := parseWhoRequest(body, h.cfg.MaxWhoZoneFilters, h.cfg.MaxWhoStringFilters); err != nil {
		return false, err
	}
	// Online-player listing is served from the world nodes' live state,
	// which this service does not cache; respond with an empty page
	// rather than guessing.
	buf := make([]byte, 1)
	n := writeWhoReply(buf, nil)
	return true, c.SendFrame(byte(OpWho), buf[:n])
}

func (h *Handler) handleMoveWorldPortAck(ctx context.Context, c *Client, body []byte) (bool, error) {
	if _, err := parseMoveWorldPortAck(body); err != nil {
		return false, err
	}
	transfer := c.PendingTransfer()
	if transfer == nil {
		return false, fmt.Errorf("realm: MoveWorldPortAck with no pending transfer")
	}

	gameChar := c.GameCharacter()
	if gameChar == nil {
		return false, fmt.Errorf("realm: MoveWorldPortAck with no active character")
	}
	gameChar.MapID = transfer.mapID
	gameChar.PosX, gameChar.PosY, gameChar.PosZ, gameChar.Heading = transfer.x, transfer.y, transfer.z, transfer.heading

	worldConn := h.world.Registry().FindByMap(transfer.mapID)
	if transfer.targetInstanceID != 0 {
		if bound := h.world.Registry().FindByInstance(transfer.targetInstanceID); bound != nil {
			worldConn = bound
		}
	}
	if worldConn == nil {
		buf := make([]byte, 1)
		n := writeTransferAborted(buf, CharSelectNoWorldNode)
		c.SetPendingTransfer(nil)
		c.SetStatus(StatusLoggedIn)
		return true, c.SendFrame(byte(OpTransferAborted), buf[:n])
	}

	summary := c.SelectedCharacter()
	loginBuf := make([]byte, constants.WorldLinkSendBufSize)
	n := worldlink.WriteCharacterLogIn(loginBuf, worldlink.CharacterLogInFrame{
		CharacterID: summary.DatabaseID,
		InstanceID:  transfer.targetInstanceID,
		Snapshot: worldlink.GameCharacterSnapshot{
			AccountLogin: gameChar.AccountLogin,
			Name:         gameChar.Name,
			MapID:        gameChar.MapID,
			X:            gameChar.PosX,
			Y:            gameChar.PosY,
			Z:            gameChar.PosZ,
			Heading:      gameChar.Heading,
		},
	})
	if err := h.world.SendToInstance(transfer.targetInstanceID, transfer.mapID, loginBuf, n); err != nil {
		buf := make([]byte, 1)
		m := writeTransferAborted(buf, CharSelectNoWorldNode)
		c.SetPendingTransfer(nil)
		c.SetStatus(StatusLoggedIn)
		return true, c.SendFrame(byte(OpTransferAborted), buf[:m])
	}

	c.BindWorld(worldConn, transfer.targetInstanceID)
	c.SetPendingTransfer(nil)
	return true, nil
}

func (h *Handler) handleLogoutRequest(ctx context.Context, c *Client) (bool, error) {
	summary := c.SelectedCharacter()
	if summary == nil {
		return false, fmt.Errorf("realm: LogoutRequest with no selected character")
	}
	leaveBuf := make([]byte, 16)
	n := worldlink.WriteLeaveWorldInstance(leaveBuf, summary.DatabaseID)
	if worldConn := c.BoundWorld(); worldConn != nil {
		if err := h.world.SendToInstance(c.InstanceID(), 0, leaveBuf, n); err != nil {
			slog.Warn("realm: LeaveWorldInstance send failed", "character_id", summary.DatabaseID, "error", err)
		}
	}
	if err := h.uplink.Logout(c.Account()); err != nil {
		slog.Warn("realm: PlayerLogout uplink send failed", "account", c.Account(), "error", err)
	}
	h.registry.remove(summary.DatabaseID)
	h.guard.MarkLoggedOut(summary.DatabaseID)

	buf := make([]byte, 0)
	n = writeLogoutComplete(buf)
	_ = c.SendFrame(byte(OpLogoutComplete), buf[:n])
	return false, nil
}

// forwardProxyUp carries an unrecognised client opcode to the bound world
// node, byte-transparent (spec §4.5).
func (h *Handler) forwardProxyUp(c *Client, opcode uint16, body []byte) error {
	summary := c.SelectedCharacter()
	if summary == nil {
		return fmt.Errorf("realm: proxy packet with no selected character")
	}
	if !h.guard.Allowed(summary.DatabaseID) {
		slog.Warn("realm: dropping proxy packet, character not yet logged in to world", "character_id", summary.DatabaseID)
		return nil
	}

	payload := make([]byte, 1+8+len(body))
	payload[0] = worldlink.OpClientProxyPacketDown
	encoded := proxy.Encode(payload[1:], proxy.ClientProxyPacket{CharacterID: summary.DatabaseID, Opcode: opcode, Body: body})
	return h.world.SendToInstance(c.InstanceID(), 0, payload, 1+encoded)
}
