package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

type JoinStatus string

const (
	JoinAdmitted JoinStatus = "admitted"
	JoinWaiting  JoinStatus = "waiting"
	JoinRejected JoinStatus = "rejected"
)

// JoinOutcome is the result of one admission attempt. State is the snapshot
// taken in the same critical section as the mutation.
type JoinOutcome struct {
	Status JoinStatus
	Role   domain.Role
	Reason string
	State  *domain.RoomState
}

// HostLeavePolicy decides what happens to a room when its host drops.
type HostLeavePolicy int

const (
	// PromoteNext hands the host role to the earliest-joined remaining
	// participant and keeps the meeting going.
	PromoteNext HostLeavePolicy = iota
	// EndOnHostLeave terminates the meeting for everyone.
	EndOnHostLeave
)

// DropResult reports what a departure did to the room.
type DropResult struct {
	WasMember bool
	Ended     bool
	Empty     bool
	NewHost   domain.ConnID
	Evicted   []Peer
}

type member struct {
	meta *domain.Participant
	peer Peer
}

// Room is one meeting's live state. All mutations and the broadcasts they
// trigger run under a single per-room mutex, so events on the same room are
// linearized; different rooms share nothing.
type Room struct {
	mu sync.Mutex

	id        domain.RoomID
	title     string
	createdBy string

	hostID       domain.ConnID
	passwordHash string

	locked           bool
	requiresApproval bool
	allowShare       bool
	allowUnmute      bool
	ended            bool

	participants map[domain.ConnID]*member
	order        []domain.ConnID
	waiting      map[domain.ConnID]*member
	waitingOrder []domain.ConnID
	screenShare  map[domain.ConnID]struct{}
}

func NewRoom(info domain.MeetingInfo) *Room {
	return &Room{
		id:               info.ID,
		title:            info.Title,
		createdBy:        info.CreatedBy,
		passwordHash:     info.PasswordHash,
		locked:           info.Locked,
		requiresApproval: info.RequiresApproval,
		allowShare:       info.AllowShare,
		allowUnmute:      info.AllowUnmute,
		participants:     make(map[domain.ConnID]*member),
		waiting:          make(map[domain.ConnID]*member),
		screenShare:      make(map[domain.ConnID]struct{}),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) HostID() domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) PasswordHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passwordHash
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants) == 0 && len(r.waiting) == 0
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:           r.id,
		Title:        r.title,
		MemberCount:  len(r.participants),
		WaitingCount: len(r.waiting),
	}
}

func (r *Room) Snapshot() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// ApplyMetadata refreshes the non-destructive fields from external meeting
// metadata on a later resolve. Membership and host are never touched.
func (r *Room) ApplyMetadata(info domain.MeetingInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.Title != "" {
		r.title = info.Title
	}
	if info.CreatedBy != "" {
		r.createdBy = info.CreatedBy
	}
	r.locked = info.Locked
	r.requiresApproval = info.RequiresApproval
	r.allowShare = info.AllowShare
	r.allowUnmute = info.AllowUnmute
	if info.PasswordHash != "" {
		r.passwordHash = info.PasswordHash
	}
}

// Join runs the admission state machine for one connection. Password and
// metadata checks belong to the caller and must already have passed.
func (r *Room) Join(peer Peer, name string, hostClaim bool) JoinOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := peer.ID()

	if r.ended {
		return JoinOutcome{Status: JoinRejected, Reason: domain.ErrMeetingEnded.Error()}
	}

	// Locking is instantaneous and non-retroactive: members stay, new
	// non-host-claiming joins are always blocked.
	if r.locked && !hostClaim {
		return JoinOutcome{Status: JoinRejected, Reason: domain.ErrMeetingLocked.Error()}
	}

	// First claimant wins; a later host claim is an ordinary guest join.
	if r.hostID == "" && hostClaim {
		r.hostID = id
	}
	isHost := r.hostID == id

	if m, ok := r.participants[id]; ok {
		// Rejoin of an admitted connection is idempotent.
		snap := r.snapshotLocked()
		return JoinOutcome{Status: JoinAdmitted, Role: m.meta.Role, State: &snap}
	}

	if !isHost && (r.locked || r.requiresApproval) {
		if _, ok := r.waiting[id]; !ok {
			r.waiting[id] = &member{
				meta: &domain.Participant{ID: id, Name: name, Role: domain.RoleGuest},
				peer: peer,
			}
			r.waitingOrder = append(r.waitingOrder, id)
		}
		snap := r.snapshotLocked()
		r.broadcastLocked(stateEvent{Type: "room:state", Room: snap})
		if host, ok := r.participants[r.hostID]; ok {
			r.sendLocked(host.peer, joinRequestEvent{
				Type: "room:join-request",
				User: domain.WaitingEntry{ID: id, Name: name},
			})
		}
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Msg("queued in lobby")
		return JoinOutcome{Status: JoinWaiting, State: &snap}
	}

	role := domain.RoleGuest
	if isHost {
		role = domain.RoleHost
	}
	// A queued connection can reach this branch by re-joining after the
	// approval gate changed (host claim, metadata refresh). It leaves the
	// lobby before it is admitted so it never sits in both sets.
	r.dropWaitingLocked(id)
	r.admitLocked(peer, name, role)
	snap := r.snapshotLocked()
	r.broadcastLocked(stateEvent{Type: "room:state", Room: snap})
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Str("role", string(role)).Msg("admitted")
	return JoinOutcome{Status: JoinAdmitted, Role: role, State: &snap}
}

// Approve moves target from the lobby into the room as a guest.
func (r *Room) Approve(caller, target domain.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	w, ok := r.waiting[target]
	if !ok {
		return domain.ErrTargetNotFound
	}
	r.dropWaitingLocked(target)
	r.admitLocked(w.peer, w.meta.Name, domain.RoleGuest)
	r.sendLocked(w.peer, plainEvent{Type: "room:admitted"})
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(target)).Msg("approved from lobby")
	return nil
}

// Deny removes target from the lobby and tells it why.
func (r *Room) Deny(caller, target domain.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	w, ok := r.waiting[target]
	if !ok {
		return domain.ErrTargetNotFound
	}
	r.dropWaitingLocked(target)
	r.sendLocked(w.peer, deniedEvent{Type: "room:denied", Reason: "Denied by host"})
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// SetSettings merges only the provided fields.
func (r *Room) SetSettings(caller domain.ConnID, patch domain.SettingsPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	if patch.Locked != nil {
		r.locked = *patch.Locked
	}
	if patch.AllowShare != nil {
		r.allowShare = *patch.AllowShare
	}
	if patch.AllowUnmute != nil {
		r.allowUnmute = *patch.AllowUnmute
	}
	r.broadcastLocked(settingsEvent{Type: "room:settings", Settings: domain.Settings{
		Locked:      r.locked,
		AllowShare:  r.allowShare,
		AllowUnmute: r.allowUnmute,
	}})
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// MuteAll force-mutes every participant. The directive asks the endpoints to
// stop sending audio; compliance is theirs.
func (r *Room) MuteAll(caller domain.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	for _, m := range r.participants {
		m.meta.IsMuted = true
		r.sendLocked(m.peer, plainEvent{Type: "room:force-mute"})
	}
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

func (r *Room) MuteOne(caller, target domain.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	m, ok := r.participants[target]
	if !ok {
		return domain.ErrTargetNotFound
	}
	m.meta.IsMuted = true
	r.sendLocked(m.peer, plainEvent{Type: "room:force-mute"})
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// GrantShare adds or removes an explicit screen-share grant for target.
func (r *Room) GrantShare(caller, target domain.ConnID, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return err
	}
	if allowed {
		r.screenShare[target] = struct{}{}
	} else {
		delete(r.screenShare, target)
	}
	if m, ok := r.participants[target]; ok {
		r.sendLocked(m.peer, screenPermissionEvent{Type: "room:screen-permission", Allowed: allowed})
	}
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// Remove kicks target from the room and returns its peer so the caller can
// drop the connection's room binding.
func (r *Room) Remove(caller, target domain.ConnID) (Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return nil, err
	}
	// Hosts leave or end the meeting, they cannot remove themselves: that
	// would leave hostId pointing at nobody.
	if target == r.hostID {
		return nil, domain.ErrTargetNotFound
	}
	m, ok := r.participants[target]
	if !ok {
		return nil, domain.ErrTargetNotFound
	}
	r.dropParticipantLocked(target)
	r.sendLocked(m.peer, plainEvent{Type: "room:removed"})
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(target)).Msg("removed by host")
	return m.peer, nil
}

// End terminates the meeting: everyone currently attached gets a terminal
// room:ended event and is evicted. The returned peers must be unbound from
// the room by the caller, and the room deleted from the registry.
func (r *Room) End(caller domain.ConnID) ([]Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostGateLocked(caller); err != nil {
		return nil, err
	}
	return r.endLocked(), nil
}

// Drop handles a leave or connection loss for conn. Exactly one of waiting
// and participants may contain it.
func (r *Room) Drop(conn domain.ConnID, policy HostLeavePolicy) DropResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := DropResult{}
	if _, ok := r.waiting[conn]; ok {
		r.dropWaitingLocked(conn)
		res.WasMember = true
	}
	if _, ok := r.participants[conn]; ok {
		r.dropParticipantLocked(conn)
		res.WasMember = true
	}
	if !res.WasMember {
		return res
	}

	if r.hostID == conn {
		if policy == EndOnHostLeave {
			res.Ended = true
			res.Evicted = r.endLocked()
			res.Empty = true
			return res
		}
		r.hostID = ""
		if len(r.order) > 0 {
			next := r.order[0]
			r.hostID = next
			r.participants[next].meta.Role = domain.RoleHost
			res.NewHost = next
			log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(next)).Msg("host succession")
		}
	}

	if len(r.participants) == 0 && len(r.waiting) == 0 {
		res.Empty = true
		return res
	}
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return res
}

// SetHand toggles the caller's raised hand.
func (r *Room) SetHand(conn domain.ConnID, raised bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[conn]
	if !ok {
		return domain.ErrNotParticipant
	}
	m.meta.HandRaised = raised
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// SetMuted applies a self mute/unmute. Unmuting is gated by allowUnmute for
// everyone but the host.
func (r *Room) SetMuted(conn domain.ConnID, muted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[conn]
	if !ok {
		return domain.ErrNotParticipant
	}
	if !muted && !r.allowUnmute && conn != r.hostID {
		r.sendLocked(m.peer, plainEvent{Type: "room:force-mute"})
		return nil
	}
	m.meta.IsMuted = muted
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// StartShare marks the caller as sharing when permitted: host always, an
// explicit grant, or the room-wide allowShare default.
func (r *Room) StartShare(conn domain.ConnID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[conn]
	if !ok {
		return false, domain.ErrNotParticipant
	}
	_, granted := r.screenShare[conn]
	allowed := conn == r.hostID || granted || r.allowShare
	if !allowed {
		r.sendLocked(m.peer, screenPermissionEvent{Type: "room:screen-permission", Allowed: false})
		return false, nil
	}
	m.meta.IsSharing = true
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return true, nil
}

func (r *Room) StopShare(conn domain.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.participants[conn]
	if !ok {
		return domain.ErrNotParticipant
	}
	m.meta.IsSharing = false
	r.broadcastLocked(stateEvent{Type: "room:state", Room: r.snapshotLocked()})
	return nil
}

// Chat fans a message out to everyone attached, lobby included.
func (r *Room) Chat(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(chatEvent{Type: "chat:message", Message: msg})
}

// --- internals, all assume r.mu held ---

func (r *Room) hostGateLocked(caller domain.ConnID) error {
	if r.ended {
		return domain.ErrMeetingEnded
	}
	if r.hostID == "" || r.hostID != caller {
		return domain.ErrNotHost
	}
	return nil
}

func (r *Room) admitLocked(peer Peer, name string, role domain.Role) {
	id := peer.ID()
	r.participants[id] = &member{
		meta: &domain.Participant{ID: id, Name: name, Role: role},
		peer: peer,
	}
	r.order = append(r.order, id)
}

func (r *Room) dropParticipantLocked(id domain.ConnID) {
	delete(r.participants, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Room) dropWaitingLocked(id domain.ConnID) {
	delete(r.waiting, id)
	for i, o := range r.waitingOrder {
		if o == id {
			r.waitingOrder = append(r.waitingOrder[:i], r.waitingOrder[i+1:]...)
			break
		}
	}
}

func (r *Room) endLocked() []Peer {
	r.broadcastLocked(plainEvent{Type: "room:ended"})
	evicted := make([]Peer, 0, len(r.participants)+len(r.waiting))
	for _, m := range r.participants {
		evicted = append(evicted, m.peer)
	}
	for _, w := range r.waiting {
		evicted = append(evicted, w.peer)
	}
	r.participants = make(map[domain.ConnID]*member)
	r.waiting = make(map[domain.ConnID]*member)
	r.order = nil
	r.waitingOrder = nil
	r.hostID = ""
	r.ended = true
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Int("evicted", len(evicted)).Msg("meeting ended")
	return evicted
}

func (r *Room) snapshotLocked() domain.RoomState {
	parts := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		parts = append(parts, *r.participants[id].meta)
	}
	waiting := make([]domain.WaitingEntry, 0, len(r.waitingOrder))
	for _, id := range r.waitingOrder {
		w := r.waiting[id]
		waiting = append(waiting, domain.WaitingEntry{ID: w.meta.ID, Name: w.meta.Name})
	}
	share := make([]domain.ConnID, 0, len(r.screenShare))
	for id := range r.screenShare {
		share = append(share, id)
	}
	return domain.RoomState{
		ID:               r.id,
		Title:            r.title,
		CreatedBy:        r.createdBy,
		HostID:           r.hostID,
		Locked:           r.locked,
		RequiresApproval: r.requiresApproval,
		HasPassword:      r.passwordHash != "",
		AllowShare:       r.allowShare,
		AllowUnmute:      r.allowUnmute,
		Participants:     parts,
		Waiting:          waiting,
		ScreenShare:      share,
	}
}

// broadcastLocked fans an event out to participants and lobby alike. Slow
// receivers are dropped from delivery, never from membership; the transport
// reports dead connections through the presence path.
func (r *Room) broadcastLocked(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Msg("broadcast marshal")
		return
	}
	dropped := 0
	for _, m := range r.participants {
		if err := m.peer.Signal().TrySend(b); err != nil {
			dropped++
		}
	}
	for _, w := range r.waiting {
		if err := w.peer.Signal().TrySend(b); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		log.Warn().Str("module", "core.room").Str("room", string(r.id)).Int("dropped", dropped).Msg("broadcast backpressure")
	}
}

func (r *Room) sendLocked(peer Peer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Msg("send marshal")
		return
	}
	if err := peer.Signal().TrySend(b); err != nil {
		log.Warn().Str("module", "core.room").Str("conn", string(peer.ID())).Msg("send dropped")
	}
}
