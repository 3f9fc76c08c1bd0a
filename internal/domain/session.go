package domain

import "time"

// Role identifies which side of the interview produced a turn.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// Turn is a single utterance in an interview transcript. Turns are
// append-only; slice order is chronological order.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is a persisted interview: the problem the candidate pasted,
// their solution, and the transcript so far. CreatedAt is assigned by
// the store at creation and never changes. The first turn of a session
// is always the interviewer's opening question.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Problem   string    `json:"problem"`
	Code      string    `json:"code"`
	Turns     []Turn    `json:"turns,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
