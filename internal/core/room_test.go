package core_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(fr, &env)
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeConn) last(t *testing.T, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	require.NoError(t, json.Unmarshal(f.frames[len(f.frames)-1], v))
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type fakePeer struct {
	id   domain.ConnID
	conn *fakeConn
}

func (p *fakePeer) ID() domain.ConnID             { return p.id }
func (p *fakePeer) Signal() core.SignalConnection { return p.conn }

func newPeer(id string) *fakePeer {
	return &fakePeer{id: domain.ConnID(id), conn: &fakeConn{}}
}

func openRoom(id string) *core.Room {
	return core.NewRoom(domain.MeetingInfo{
		ID:          domain.RoomID(id),
		Title:       "Test Meeting",
		AllowShare:  true,
		AllowUnmute: true,
	})
}

func TestJoinHostThenGuest(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	guest := newPeer("g1")

	out := room.Join(host, "Host", true)
	require.Equal(t, core.JoinAdmitted, out.Status)
	assert.Equal(t, domain.RoleHost, out.Role)
	assert.Equal(t, domain.ConnID("h1"), out.State.HostID)

	out = room.Join(guest, "Bob", false)
	require.Equal(t, core.JoinAdmitted, out.Status)
	assert.Equal(t, domain.RoleGuest, out.Role)
	assert.Len(t, out.State.Participants, 2)
	// Join order is preserved for deterministic listing.
	assert.Equal(t, domain.ConnID("h1"), out.State.Participants[0].ID)
	assert.Equal(t, domain.ConnID("g1"), out.State.Participants[1].ID)

	assert.Contains(t, host.conn.types(), "room:state")
	assert.Contains(t, guest.conn.types(), "room:state")
}

func TestOnlyFirstHostClaimWins(t *testing.T) {
	room := openRoom("m1")
	first := newPeer("a")
	second := newPeer("b")

	out := room.Join(first, "Alice", true)
	require.Equal(t, domain.RoleHost, out.Role)

	out = room.Join(second, "Eve", true)
	require.Equal(t, core.JoinAdmitted, out.Status)
	assert.Equal(t, domain.RoleGuest, out.Role)
	assert.Equal(t, domain.ConnID("a"), out.State.HostID)

	hosts := 0
	for _, p := range out.State.Participants {
		if p.Role == domain.RoleHost {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestLockedRoomBlocksNewJoins(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	room.Join(host, "Host", true)

	locked := true
	require.NoError(t, room.SetSettings("h1", domain.SettingsPatch{Locked: &locked}))

	out := room.Join(newPeer("g1"), "Bob", false)
	require.Equal(t, core.JoinRejected, out.Status)
	assert.Equal(t, domain.ErrMeetingLocked.Error(), out.Reason)

	// A host claim when the role is taken passes the lock gate but waits.
	out = room.Join(newPeer("g2"), "Mallory", true)
	assert.Equal(t, core.JoinWaiting, out.Status)

	// Already-admitted participants are unaffected by locking.
	assert.Equal(t, 1, room.MemberCount())
}

func TestApprovalQueue(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m2", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	ann := newPeer("a1")

	room.Join(host, "Host", true)
	out := room.Join(ann, "Ann", false)
	require.Equal(t, core.JoinWaiting, out.Status)
	require.Len(t, out.State.Waiting, 1)
	assert.Equal(t, "Ann", out.State.Waiting[0].Name)
	assert.Len(t, out.State.Participants, 1, "waiting entry must not be a participant")
	assert.Contains(t, host.conn.types(), "room:join-request")

	require.NoError(t, room.Approve("h1", "a1"))
	assert.Contains(t, ann.conn.types(), "room:admitted")

	snap := room.Snapshot()
	assert.Empty(t, snap.Waiting)
	require.Len(t, snap.Participants, 2)
	assert.Equal(t, domain.RoleGuest, snap.Participants[1].Role)
}

func TestApproveUnknownTargetIsNoop(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	room.Join(host, "Host", true)

	before := host.conn.count()
	err := room.Approve("h1", "ghost")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Equal(t, before, host.conn.count(), "no broadcast on a no-op")
}

func TestDenyNotifiesTarget(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m2", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	ann := newPeer("a1")
	room.Join(host, "Host", true)
	room.Join(ann, "Ann", false)

	require.NoError(t, room.Deny("h1", "a1"))

	var denied struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	found := false
	for _, fr := range ann.conn.frames {
		if json.Unmarshal(fr, &denied) == nil && denied.Type == "room:denied" {
			found = true
			break
		}
	}
	require.True(t, found)
	assert.Equal(t, "Denied by host", denied.Reason)
	assert.Empty(t, room.Snapshot().Waiting)
}

func TestHostGateSilentlyIgnoresGuests(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	before := guest.conn.count()
	locked := true
	err := room.SetSettings("g1", domain.SettingsPatch{Locked: &locked})
	assert.ErrorIs(t, err, domain.ErrNotHost)
	assert.False(t, room.Snapshot().Locked)
	assert.Equal(t, before, guest.conn.count(), "non-host caller gets no reply")
}

func TestSettingsMergeOnlyProvidedFields(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	room.Join(host, "Host", true)

	share := false
	require.NoError(t, room.SetSettings("h1", domain.SettingsPatch{AllowShare: &share}))

	snap := room.Snapshot()
	assert.False(t, snap.AllowShare)
	assert.True(t, snap.AllowUnmute)
	assert.False(t, snap.Locked)
	assert.Contains(t, host.conn.types(), "room:settings")
}

func TestMuteAllAndMuteOne(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	g1 := newPeer("g1")
	g2 := newPeer("g2")
	room.Join(host, "Host", true)
	room.Join(g1, "Bob", false)
	room.Join(g2, "Carol", false)

	require.NoError(t, room.MuteAll("h1"))
	for _, p := range room.Snapshot().Participants {
		assert.True(t, p.IsMuted)
	}
	assert.Contains(t, g1.conn.types(), "room:force-mute")

	// Self unmute allowed while allowUnmute is on.
	require.NoError(t, room.SetMuted("g1", false))
	require.NoError(t, room.MuteOne("h1", "g1"))
	assert.True(t, room.Snapshot().Participants[1].IsMuted)
	assert.ErrorIs(t, room.MuteOne("h1", "ghost"), domain.ErrTargetNotFound)
}

func TestUnmuteGatedByAllowUnmute(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", AllowShare: true, AllowUnmute: false})
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	require.NoError(t, room.MuteAll("h1"))
	require.NoError(t, room.SetMuted("g1", false))
	assert.True(t, room.Snapshot().Participants[1].IsMuted, "guest cannot self-unmute")

	require.NoError(t, room.SetMuted("h1", false))
	assert.False(t, room.Snapshot().Participants[0].IsMuted, "host is exempt")
}

func TestScreenSharePermissions(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", AllowShare: false, AllowUnmute: true})
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	allowed, err := room.StartShare("g1")
	require.NoError(t, err)
	assert.False(t, allowed)

	var perm struct {
		Type    string `json:"type"`
		Allowed bool   `json:"allowed"`
	}
	guest.conn.last(t, &perm)
	assert.Equal(t, "room:screen-permission", perm.Type)
	assert.False(t, perm.Allowed)

	require.NoError(t, room.GrantShare("h1", "g1", true))
	allowed, err = room.StartShare("g1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.True(t, room.Snapshot().Participants[1].IsSharing)

	require.NoError(t, room.StopShare("g1"))
	assert.False(t, room.Snapshot().Participants[1].IsSharing)

	// Host shares without any grant.
	allowed, err = room.StartShare("h1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRemoveParticipant(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	peer, err := room.Remove("h1", "g1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnID("g1"), peer.ID())
	assert.Contains(t, guest.conn.types(), "room:removed")
	assert.Equal(t, 1, room.MemberCount())

	_, err = room.Remove("h1", "g1")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)

	_, err = room.Remove("h1", "h1")
	assert.ErrorIs(t, err, domain.ErrTargetNotFound, "host cannot remove itself")
}

func TestEndMeetingIsTerminal(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	guest := newPeer("g1")
	waiter := newPeer("w1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)
	require.NoError(t, room.Approve("h1", "g1"))
	room.Join(waiter, "Wendy", false)

	evicted, err := room.End("h1")
	require.NoError(t, err)
	assert.Len(t, evicted, 3)
	assert.Contains(t, host.conn.types(), "room:ended")
	assert.Contains(t, waiter.conn.types(), "room:ended")
	assert.True(t, room.Empty())

	out := room.Join(newPeer("late"), "Late", false)
	assert.Equal(t, core.JoinRejected, out.Status)
	assert.Equal(t, domain.ErrMeetingEnded.Error(), out.Reason)
	assert.ErrorIs(t, room.MuteAll("h1"), domain.ErrMeetingEnded)
}

func TestDropGuestBroadcasts(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	res := room.Drop("g1", core.PromoteNext)
	assert.True(t, res.WasMember)
	assert.False(t, res.Ended)
	assert.False(t, res.Empty)
	assert.Equal(t, 1, room.MemberCount())
}

func TestDropHostPromotesNextJoined(t *testing.T) {
	room := openRoom("m3")
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	res := room.Drop("h1", core.PromoteNext)
	require.True(t, res.WasMember)
	assert.Equal(t, domain.ConnID("g1"), res.NewHost)

	snap := room.Snapshot()
	assert.Equal(t, domain.ConnID("g1"), snap.HostID)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, domain.RoleHost, snap.Participants[0].Role)
}

func TestDropHostEndsMeetingUnderEndPolicy(t *testing.T) {
	room := openRoom("m3")
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)
	room.Join(guest, "Bob", false)

	res := room.Drop("h1", core.EndOnHostLeave)
	assert.True(t, res.Ended)
	assert.True(t, res.Empty)
	assert.Contains(t, guest.conn.types(), "room:ended")
}

func TestDropLastMemberEmptiesRoom(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	room.Join(host, "Host", true)

	res := room.Drop("h1", core.PromoteNext)
	assert.True(t, res.Empty)

	res = room.Drop("h1", core.PromoteNext)
	assert.False(t, res.WasMember, "second drop is a no-op")
}

func TestWaitingEntryDropped(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	waiter := newPeer("w1")
	room.Join(host, "Host", true)
	room.Join(waiter, "Wendy", false)

	res := room.Drop("w1", core.PromoteNext)
	assert.True(t, res.WasMember)
	assert.Empty(t, room.Snapshot().Waiting)
	assert.False(t, res.Empty)
}

func TestParticipantNeverInBothSets(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	ann := newPeer("a1")
	room.Join(host, "Host", true)
	room.Join(ann, "Ann", false)

	require.NoError(t, room.Approve("h1", "a1"))
	snap := room.Snapshot()
	for _, w := range snap.Waiting {
		for _, p := range snap.Participants {
			assert.NotEqual(t, w.ID, p.ID)
		}
	}
	assert.Len(t, snap.Participants, 2)
	assert.Empty(t, snap.Waiting)
}

func TestQueuedHostClaimLeavesLobby(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	g := newPeer("g1")

	out := room.Join(g, "Ghost", false)
	require.Equal(t, core.JoinWaiting, out.Status)

	// No host yet, so the retry claims the room; the lobby entry must go.
	out = room.Join(g, "Ghost", true)
	require.Equal(t, core.JoinAdmitted, out.Status)
	assert.Equal(t, domain.RoleHost, out.Role)
	assert.Equal(t, domain.ConnID("g1"), out.State.HostID)
	require.Len(t, out.State.Participants, 1)
	assert.Empty(t, out.State.Waiting)

	// The stale lobby entry is gone, so approving the same id is a benign
	// no-op instead of a second admission.
	assert.ErrorIs(t, room.Approve("g1", "g1"), domain.ErrTargetNotFound)
	assert.Len(t, room.Snapshot().Participants, 1)
}

func TestQueuedRejoinAfterApprovalLifted(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	guest := newPeer("g1")
	room.Join(host, "Host", true)

	out := room.Join(guest, "Bob", false)
	require.Equal(t, core.JoinWaiting, out.Status)

	room.ApplyMetadata(domain.MeetingInfo{ID: "m1", AllowShare: true, AllowUnmute: true})

	out = room.Join(guest, "Bob", false)
	require.Equal(t, core.JoinAdmitted, out.Status)
	require.Len(t, out.State.Participants, 2)
	assert.Empty(t, out.State.Waiting)

	// Dropping the rejoined guest must remove it completely.
	res := room.Drop("g1", core.PromoteNext)
	assert.True(t, res.WasMember)
	snap := room.Snapshot()
	assert.Len(t, snap.Participants, 1)
	assert.Empty(t, snap.Waiting)
}

func TestHandRaise(t *testing.T) {
	room := openRoom("m1")
	host := newPeer("h1")
	room.Join(host, "Host", true)

	require.NoError(t, room.SetHand("h1", true))
	assert.True(t, room.Snapshot().Participants[0].HandRaised)
	assert.ErrorIs(t, room.SetHand("ghost", true), domain.ErrNotParticipant)
}

func TestChatReachesLobby(t *testing.T) {
	room := core.NewRoom(domain.MeetingInfo{ID: "m1", RequiresApproval: true, AllowShare: true, AllowUnmute: true})
	host := newPeer("h1")
	waiter := newPeer("w1")
	room.Join(host, "Host", true)
	room.Join(waiter, "Wendy", false)

	room.Chat(domain.ChatMessage{ID: "1", From: "Host", Text: "hi", At: "2026-01-01T00:00:00Z"})
	assert.Contains(t, host.conn.types(), "chat:message")
	assert.Contains(t, waiter.conn.types(), "chat:message")
}
