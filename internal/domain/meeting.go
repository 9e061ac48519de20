package domain

import "time"

// MeetingInfo is what the coordinator learns about a meeting from the
// external metadata collaborator before letting anyone in.
type MeetingInfo struct {
	ID               RoomID     `json:"meetingId"`
	Title            string     `json:"title"`
	CreatedBy        string     `json:"createdBy"`
	PasswordHash     string     `json:"-"`
	Locked           bool       `json:"locked"`
	RequiresApproval bool       `json:"requiresApproval"`
	AllowShare       bool       `json:"allowShare"`
	AllowUnmute      bool       `json:"allowUnmute"`
	ScheduledFor     *time.Time `json:"scheduledFor,omitempty"`
}

func (m MeetingInfo) HasPassword() bool { return m.PasswordHash != "" }
