package realm

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/headercipher"
	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/proxy"
	"github.com/realmbroker/realmd/internal/realmlink"
)

// fakeAddr satisfies net.Addr with a fixed host:port string, since
// net.Pipe's endpoints don't carry one and NewClient needs one to split.
type fakeAddr struct{ s string }

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return a.s }

type fakeConn struct{ net.Conn }

func (c fakeConn) RemoteAddr() net.Addr { return fakeAddr{"127.0.0.1:34567"} }

func pipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	c, err := NewClient(fakeConn{serverSide}, 0xaaaaaaaa)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, clientSide
}

// fakeCharacters is an in-memory CharacterRepository for exercising the
// FSM without a database.
type fakeCharacters struct {
	byID     map[uint32]*model.GameCharacter
	atLogin  map[uint32]model.AtLoginFlags
	byAccount map[string][]model.CharacterSummary
	nextID   uint32
	createErr error
	renameErr error
}

func newFakeCharacters() *fakeCharacters {
	return &fakeCharacters{
		byID:      map[uint32]*model.GameCharacter{},
		atLogin:   map[uint32]model.AtLoginFlags{},
		byAccount: map[string][]model.CharacterSummary{},
		nextID:    1,
	}
}

func (f *fakeCharacters) ListByAccount(ctx context.Context, accountLogin string, realmID int32) ([]model.CharacterSummary, error) {
	return f.byAccount[accountLogin], nil
}

func (f *fakeCharacters) CountByAccount(ctx context.Context, accountLogin string, realmID int32) (int, error) {
	return len(f.byAccount[accountLogin]), nil
}

func (f *fakeCharacters) Create(ctx context.Context, accountLogin string, realmID int32, name string, race int8, classID int16) (uint32, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	for _, c := range f.byAccount[accountLogin] {
		if c.Name == name {
			return 0, errors.New("fake: name already in use")
		}
	}
	id := f.nextID
	f.nextID++
	summary := model.CharacterSummary{DatabaseID: id, Name: name, Race: race, ClassID: classID}
	f.byAccount[accountLogin] = append(f.byAccount[accountLogin], summary)
	f.byID[id] = &model.GameCharacter{DatabaseID: id, AccountLogin: accountLogin, Name: name}
	return id, nil
}

func (f *fakeCharacters) SoftDelete(ctx context.Context, characterID uint32) error {
	delete(f.byID, characterID)
	return nil
}

func (f *fakeCharacters) Rename(ctx context.Context, characterID uint32, newName string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	if gc, ok := f.byID[characterID]; ok {
		gc.Name = newName
	}
	return nil
}

func (f *fakeCharacters) GetByID(ctx context.Context, characterID uint32, realmID int32) (*model.GameCharacter, model.AtLoginFlags, error) {
	gc, ok := f.byID[characterID]
	if !ok {
		return nil, 0, nil
	}
	return gc, f.atLogin[characterID], nil
}

// fakeFriends is an in-memory FriendRepository.
type fakeFriends struct {
	owners []uint32
}

func (f *fakeFriends) RemoveFromAllFriendLists(ctx context.Context, victimID uint32) ([]uint32, error) {
	return f.owners, nil
}

// fakeGroups is an in-memory GroupRepository.
type fakeGroups struct {
	byID map[int64]*model.Group
}

func (f *fakeGroups) Load(ctx context.Context, groupID int64) (*model.Group, error) {
	return f.byID[groupID], nil
}

// fakeUplink is an in-memory LoginUplink.
type fakeUplink struct {
	outcome *realmlink.PlayerLoginOutcome
	err     error
}

func (f *fakeUplink) RequestPlayerLogin(accountName string) (*realmlink.PlayerLoginOutcome, error) {
	return f.outcome, f.err
}

func (f *fakeUplink) Logout(accountName string) error { return nil }

func newTestHandler(characters *fakeCharacters, friends *fakeFriends, groups *fakeGroups) *Handler {
	cfg := config.DefaultRealmServer()
	return NewHandler(cfg, &fakeUplink{}, nil, nil, newClientRegistry(), characters, friends, groups)
}

func authenticatedClient(t *testing.T, account string) (*Client, net.Conn) {
	t.Helper()
	c, clientSide := pipeClient(t)
	c.CompleteAuth(account, []byte("session-key"), nil)
	return c, clientSide
}

func TestHandleCharEnumPopulatesCache(t *testing.T) {
	characters := newFakeCharacters()
	characters.byAccount["ALICE"] = []model.CharacterSummary{{DatabaseID: 1, Name: "Ally"}}
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})

	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 256)
		clientSide.Read(buf)
		close(done)
	}()

	keepOpen, err := h.HandlePacket(context.Background(), c, OpCharEnum, nil)
	<-done
	if err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if !keepOpen {
		t.Fatal("CharEnum must not close the connection")
	}
	if _, ok := c.FindCharacter(1); !ok {
		t.Error("CharEnum must cache the returned roster on the client")
	}
}

func TestHandleCharCreateRejectsInvalidRaceClass(t *testing.T) {
	characters := newFakeCharacters()
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})
	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		done <- buf[:n]
	}()

	body := encodeCharCreateBody("Badcombo", 99, 99)
	keepOpen, err := h.HandlePacket(context.Background(), c, OpCharCreate, body)
	reply := <-done
	if err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if !keepOpen {
		t.Fatal("an invalid race/class must reply, not disconnect")
	}
	if result := reply[outboundHeaderLen]; result != CharCreateInvalidRace {
		t.Errorf("result = %d, want CharCreateInvalidRace", result)
	}
	if len(characters.byAccount["ALICE"]) != 0 {
		t.Error("no character should have been created")
	}
}

func TestHandleCharCreateEnforcesAccountCap(t *testing.T) {
	characters := newFakeCharacters()
	cfg := config.DefaultRealmServer()
	cfg.MaxCharactersPerAccount = 1
	h := NewHandler(cfg, &fakeUplink{}, nil, nil, newClientRegistry(), characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})

	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	race, class := firstValidRaceClass()
	characters.byAccount["ALICE"] = []model.CharacterSummary{{DatabaseID: 1, Name: "Existing"}}

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		done <- buf[:n]
	}()

	body := encodeCharCreateBody("Newbie", race, class)
	if _, err := h.HandlePacket(context.Background(), c, OpCharCreate, body); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	reply := <-done
	if result := reply[outboundHeaderLen]; result != CharCreateServerLimit {
		t.Errorf("result = %d, want CharCreateServerLimit", result)
	}
}

func TestHandleCharDeleteRejectsUnownedCharacter(t *testing.T) {
	characters := newFakeCharacters()
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})
	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	// No characters cached on c, so any id looks unowned.

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		done <- buf[:n]
	}()

	guid := model.PackGUID(1, 1, 1)
	body := make([]byte, 8)
	putUint64LE(body, uint64(guid))

	if _, err := h.HandlePacket(context.Background(), c, OpCharDelete, body); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	reply := <-done
	if result := reply[outboundHeaderLen]; result != CharDeleteNotFound {
		t.Errorf("result = %d, want CharDeleteNotFound", result)
	}
}

func TestHandleCharDeleteNotifiesOnlineFriends(t *testing.T) {
	characters := newFakeCharacters()
	characters.byAccount["ALICE"] = []model.CharacterSummary{{DatabaseID: 1, Name: "Ally"}}
	characters.byID[1] = &model.GameCharacter{DatabaseID: 1, AccountLogin: "ALICE", Name: "Ally"}
	friends := &fakeFriends{owners: []uint32{2}}
	h := newTestHandler(characters, friends, &fakeGroups{byID: map[int64]*model.Group{}})

	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	c.SetCharacters(characters.byAccount["ALICE"])

	owner, ownerConn := authenticatedClient(t, "BOB")
	defer ownerConn.Close()
	h.registry.add(2, owner)

	victimDone := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		victimDone <- buf[:n]
	}()
	friendDone := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := ownerConn.Read(buf)
		friendDone <- buf[:n]
	}()

	guid := model.PackGUID(1, 1, 1)
	body := make([]byte, 8)
	putUint64LE(body, uint64(guid))

	if _, err := h.HandlePacket(context.Background(), c, OpCharDelete, body); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}

	victimReply := <-victimDone
	if result := victimReply[outboundHeaderLen]; result != CharOk {
		t.Errorf("victim result = %d, want CharOk", result)
	}
	friendReply := <-friendDone
	// The owner's header cipher is enabled, so compare against the header
	// its first outbound frame enciphers to.
	ownerSend := headercipher.NewSendState([]byte("session-key"))
	ownerSend.Enable()
	wantHeader := make([]byte, outboundHeaderLen)
	encodeClientFrame(wantHeader, ownerSend, byte(OpFriendRemoved), 8)
	if !bytes.Equal(friendReply[:outboundHeaderLen], wantHeader) {
		t.Errorf("friend did not receive a FriendRemoved push, got header %x, want %x", friendReply[:outboundHeaderLen], wantHeader)
	}
}

func TestHandleCharRenameRejectsWithoutRenameFlag(t *testing.T) {
	characters := newFakeCharacters()
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})
	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	// The cached character has no AtLoginRename flag, so rename must be
	// refused.
	c.SetCharacters([]model.CharacterSummary{{DatabaseID: 1, Name: "Ally"}})

	done := make(chan []byte)
	go func() {
		buf := make([]byte, 256)
		n, _ := clientSide.Read(buf)
		done <- buf[:n]
	}()

	guid := model.PackGUID(1, 1, 1)
	newName := "NewName"
	body := make([]byte, 8+1+len(newName))
	putUint64LE(body, uint64(guid))
	body[8] = byte(len(newName))
	copy(body[9:], newName)

	if _, err := h.HandlePacket(context.Background(), c, OpCharRename, body); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	reply := <-done
	if result := reply[outboundHeaderLen]; result != CharRenameNotAllowed {
		t.Errorf("result = %d, want CharRenameNotAllowed", result)
	}
}

func TestHandlePacketRejectsBlockedClient(t *testing.T) {
	characters := newFakeCharacters()
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})
	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	c.Block()

	if _, err := h.HandlePacket(context.Background(), c, OpPing, nil); err == nil {
		t.Fatal("expected an error dispatching to a blocked client")
	}
}

func TestHandlePacketRejectsUnauthenticatedCharEnum(t *testing.T) {
	characters := newFakeCharacters()
	h := newTestHandler(characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})
	c, clientSide := pipeClient(t)
	defer clientSide.Close()
	// c is StatusConnected, never authenticated.

	if _, err := h.HandlePacket(context.Background(), c, OpCharEnum, nil); err == nil {
		t.Fatal("CharEnum must be rejected before AuthSession completes")
	}
}

func TestForwardProxyUpDropsWhenNotYetLoggedIntoWorld(t *testing.T) {
	characters := newFakeCharacters()
	cfg := config.DefaultRealmServer()
	guard := proxy.NewGuard()
	h := NewHandler(cfg, &fakeUplink{}, nil, guard, newClientRegistry(), characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})

	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	c.SetStatus(StatusLoggedIn)
	c.SelectCharacter(model.CharacterSummary{DatabaseID: 1, Name: "Ally"})
	// guard never marked characterID 1 as logged in to a world node, so
	// forwardProxyUp must drop the packet silently rather than touch the
	// (here nil) worldlink.Server.

	keepOpen, err := h.HandlePacket(context.Background(), c, 0x9999, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if !keepOpen {
		t.Fatal("dropping an unguarded proxy packet must not close the connection")
	}
}

func TestForwardProxyUpRequiresSelectedCharacter(t *testing.T) {
	characters := newFakeCharacters()
	cfg := config.DefaultRealmServer()
	guard := proxy.NewGuard()
	h := NewHandler(cfg, &fakeUplink{}, nil, guard, newClientRegistry(), characters, &fakeFriends{}, &fakeGroups{byID: map[int64]*model.Group{}})

	c, clientSide := authenticatedClient(t, "ALICE")
	defer clientSide.Close()
	c.SetStatus(StatusLoggedIn)
	// No SelectCharacter call: SelectedCharacter() is nil.

	if _, err := h.HandlePacket(context.Background(), c, 0x9999, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error forwarding a proxy packet with no selected character")
	}
}

func encodeCharCreateBody(name string, race int8, classID int16) []byte {
	body := make([]byte, 1+len(name)+1+2)
	pos := 0
	body[pos] = byte(len(name))
	pos++
	copy(body[pos:], name)
	pos += len(name)
	body[pos] = byte(race)
	pos++
	putUint16LE(body[pos:], uint16(classID))
	return body
}

func firstValidRaceClass() (int8, int16) {
	for race, classes := range validRaceClass {
		for class, ok := range classes {
			if ok {
				return race, class
			}
		}
	}
	return 0, 0
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
