// Package interview holds the conversation state machine that mediates
// between the UI, the prompt builder, the LLM client, and the session
// store.
package interview

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mockmate/mockmate/internal/domain"
	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/logging"
	"github.com/mockmate/mockmate/internal/prompt"
	"github.com/mockmate/mockmate/internal/store"
)

// State is the controller's position in the interview lifecycle.
type State string

const (
	// StateIdle: no active problem; drafts may be filled in.
	StateIdle State = "idle"
	// StateAwaitingOpening: the opening request is in flight.
	StateAwaitingOpening State = "awaiting_opening"
	// StateActive: transcript non-empty, waiting for user input.
	StateActive State = "active"
	// StateAwaitingReply: a follow-up request is in flight.
	StateAwaitingReply State = "awaiting_reply"
)

var (
	ErrEmptyProblem  = errors.New("interview: problem description is required")
	ErrEmptyCode     = errors.New("interview: code solution is required")
	ErrEmptyMessage  = errors.New("interview: message must not be blank")
	ErrBusy          = errors.New("interview: a request is already in flight")
	ErrNotStarted    = errors.New("interview: no interview in progress")
	ErrAlreadyActive = errors.New("interview: interview already in progress")

	// ErrSuperseded reports that a response resolved after the user had
	// already moved on (new chat or session switch); its result was
	// discarded rather than overwriting newer state.
	ErrSuperseded = errors.New("interview: request superseded")
)

// apologyText stands in for the interviewer when a follow-up call fails,
// so the transcript never ends on an unanswered candidate turn.
const apologyText = "My apologies, I encountered an error. Please try again."

// blockedText is the user-visible message for an empty or safety-filtered
// model response.
const blockedText = "The response was blocked or empty. Please try rephrasing your message."

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	State           State         `json:"state"`
	Problem         string        `json:"problem"`
	Code            string        `json:"code"`
	Transcript      []domain.Turn `json:"transcript"`
	ActiveSessionID string        `json:"activeSessionId,omitempty"`
	Busy            bool          `json:"busy"`
	LastError       string        `json:"lastError,omitempty"`
}

// Controller owns the conversation state for one open UI instance. All
// mutation goes through its methods; the transcript is append-only while
// a conversation is active.
type Controller struct {
	mu       sync.Mutex
	client   llm.Client
	sessions store.SessionStore
	log      *logging.Logger

	owner           domain.Identity
	state           State
	problem         string
	code            string
	transcript      []domain.Turn
	activeSessionID string
	lastErr         string

	// epoch increments whenever the active conversation changes; an
	// in-flight response whose epoch no longer matches is discarded.
	epoch uint64
}

// New creates an idle controller.
func New(client llm.Client, sessions store.SessionStore, log *logging.Logger) *Controller {
	return &Controller{
		client:   client,
		sessions: sessions,
		log:      log.Sub("interview"),
		state:    StateIdle,
	}
}

// SetIdentity refreshes the owner identity. The controller treats it as
// read-only; the auth layer decides when it changes.
func (c *Controller) SetIdentity(identity domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = identity
}

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:           c.state,
		Problem:         c.problem,
		Code:            c.code,
		Transcript:      append([]domain.Turn(nil), c.transcript...),
		ActiveSessionID: c.activeSessionID,
		Busy:            c.state == StateAwaitingOpening || c.state == StateAwaitingReply,
		LastError:       c.lastErr,
	}
}

// Start begins an interview for the given problem/code pair. Blank
// inputs are rejected before any network call. On success the transcript
// holds the interviewer's opening question and, when the user is signed
// in, a session is created in the store.
func (c *Controller) Start(ctx context.Context, problem, code string) (Snapshot, error) {
	c.mu.Lock()
	switch c.state {
	case StateAwaitingOpening, StateAwaitingReply:
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrBusy
	case StateActive:
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrAlreadyActive
	}
	if verr := validateInputs(problem, code); verr != nil {
		c.lastErr = verr.Error()
		defer c.mu.Unlock()
		return c.snapshotLocked(), verr
	}

	c.problem, c.code = problem, code
	c.state = StateAwaitingOpening
	c.lastErr = ""
	epoch := c.epoch
	owner := c.owner
	c.mu.Unlock()

	opening := prompt.BuildOpening(problem, code)
	reply, err := c.client.Converse(ctx, []domain.Turn{{Role: domain.RoleCandidate, Text: opening}})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return c.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		// Nothing persisted; drafts are kept so the user can retry.
		c.state = StateIdle
		c.transcript = nil
		c.lastErr = errorMessage(err)
		return c.snapshotLocked(), err
	}

	c.transcript = []domain.Turn{{Role: domain.RoleInterviewer, Text: reply}}
	c.state = StateActive

	if owner.SignedIn() {
		sess, perr := c.sessions.Create(ctx, owner.ID, problem, code, c.transcript)
		if perr != nil {
			c.log.Warn().Err(perr).Msg("failed to persist new session")
			c.lastErr = "Your interview started but could not be saved."
		} else {
			c.activeSessionID = sess.ID
		}
	} else {
		c.log.Debug().Msg("not signed in; session not persisted")
	}

	return c.snapshotLocked(), nil
}

// Send submits the candidate's answer and appends the interviewer's
// reply. The candidate turn is appended optimistically before the call;
// on failure a fixed apology turn keeps the transcript consistent.
func (c *Controller) Send(ctx context.Context, text string) (Snapshot, error) {
	c.mu.Lock()
	switch c.state {
	case StateAwaitingOpening, StateAwaitingReply:
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrBusy
	case StateIdle:
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrNotStarted
	}
	if strings.TrimSpace(text) == "" {
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrEmptyMessage
	}

	c.transcript = append(c.transcript, domain.Turn{Role: domain.RoleCandidate, Text: text})
	c.state = StateAwaitingReply
	history := append([]domain.Turn(nil), c.transcript...)
	epoch := c.epoch
	owner := c.owner
	sessionID := c.activeSessionID
	c.mu.Unlock()

	reply, err := c.client.Converse(ctx, history)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return c.snapshotLocked(), ErrSuperseded
	}
	c.state = StateActive
	if err != nil {
		c.transcript = append(c.transcript, domain.Turn{Role: domain.RoleInterviewer, Text: apologyText})
		c.lastErr = errorMessage(err)
		return c.snapshotLocked(), err
	}

	c.transcript = append(c.transcript, domain.Turn{Role: domain.RoleInterviewer, Text: reply})
	c.lastErr = ""

	// Best-effort persistence: a failed write never rolls back the
	// in-memory transcript.
	if sessionID != "" && owner.SignedIn() {
		if perr := c.sessions.ReplaceTranscript(ctx, owner.ID, sessionID, c.transcript); perr != nil {
			c.log.Warn().Err(perr).Str("session", sessionID).Msg("failed to persist transcript")
			c.lastErr = "Your reply arrived but the chat could not be saved."
		}
	}

	return c.snapshotLocked(), nil
}

// NewChat clears the drafts, transcript, and active session reference
// without deleting anything persisted. Valid from any state; any
// in-flight response is discarded when it resolves.
func (c *Controller) NewChat() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.problem, c.code = "", ""
	c.transcript = nil
	c.activeSessionID = ""
	c.lastErr = ""
	c.state = StateIdle
	return c.snapshotLocked()
}

// SelectSession loads a stored session into the controller. Requires a
// signed-in owner. Any in-flight response is discarded.
func (c *Controller) SelectSession(ctx context.Context, sessionID string) (Snapshot, error) {
	c.mu.Lock()
	owner := c.owner
	if !owner.SignedIn() {
		defer c.mu.Unlock()
		return c.snapshotLocked(), store.ErrNotAuthenticated
	}
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	sess, err := c.sessions.Get(ctx, owner.ID, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return c.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		c.lastErr = errorMessage(err)
		return c.snapshotLocked(), err
	}

	c.problem, c.code = sess.Problem, sess.Code
	c.transcript = append([]domain.Turn(nil), sess.Turns...)
	c.activeSessionID = sess.ID
	c.lastErr = ""
	if len(c.transcript) > 0 {
		c.state = StateActive
	} else {
		c.state = StateIdle
	}
	return c.snapshotLocked(), nil
}

func validateInputs(problem, code string) error {
	if strings.TrimSpace(problem) == "" {
		return ErrEmptyProblem
	}
	if strings.TrimSpace(code) == "" {
		return ErrEmptyCode
	}
	return nil
}

// errorMessage converts an adapter failure into the text surfaced to the
// user.
func errorMessage(err error) string {
	var te *llm.TransportError
	switch {
	case errors.Is(err, llm.ErrEmptyOrBlocked):
		return blockedText
	case errors.As(err, &te):
		return te.Error()
	default:
		return err.Error()
	}
}
