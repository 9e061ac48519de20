package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/Meet/internal/domain"
)

var ErrMeetingNotOwned = errors.New("meeting not found or not owned by caller")

type CreateMeetingParams struct {
	Title            string     `json:"title"`
	CreatedBy        string     `json:"createdBy"`
	Password         string     `json:"password"`
	RequiresApproval bool       `json:"requiresApproval"`
	ScheduledFor     *time.Time `json:"scheduledFor"`
}

// MeetingStore is the in-memory meeting-metadata collaborator: instant and
// scheduled meetings, bcrypt-hashed passwords. It implements MeetingResolver
// for the coordinator and the CRUD surface for the HTTP API.
type MeetingStore struct {
	mu       sync.RWMutex
	meetings map[domain.RoomID]domain.MeetingInfo
}

func NewMeetingStore() *MeetingStore {
	return &MeetingStore{meetings: make(map[domain.RoomID]domain.MeetingInfo)}
}

func (s *MeetingStore) Create(p CreateMeetingParams) (domain.MeetingInfo, error) {
	title := p.Title
	if title == "" {
		title = p.CreatedBy + "'s Meeting"
	}
	info := domain.MeetingInfo{
		ID:               domain.RoomID(uuid.NewString()),
		Title:            title,
		CreatedBy:        p.CreatedBy,
		RequiresApproval: p.RequiresApproval,
		AllowShare:       true,
		AllowUnmute:      true,
		ScheduledFor:     p.ScheduledFor,
	}
	if p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.MeetingInfo{}, err
		}
		info.PasswordHash = string(hash)
	}
	s.mu.Lock()
	s.meetings[info.ID] = info
	s.mu.Unlock()
	return info, nil
}

// Resolve implements MeetingResolver.
func (s *MeetingStore) Resolve(id domain.RoomID) (domain.MeetingInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.meetings[id]
	return info, ok
}

// List returns the caller's meetings, soonest scheduled first.
func (s *MeetingStore) List(createdBy string) []domain.MeetingInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MeetingInfo, 0)
	for _, m := range s.meetings {
		if m.CreatedBy == createdBy {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ScheduledFor, out[j].ScheduledFor
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

func (s *MeetingStore) Delete(id domain.RoomID, createdBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.CreatedBy != createdBy {
		return ErrMeetingNotOwned
	}
	delete(s.meetings, id)
	return nil
}
