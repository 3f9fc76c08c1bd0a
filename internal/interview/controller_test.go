package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockmate/mockmate/internal/domain"
	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/logging"
	"github.com/mockmate/mockmate/internal/store"
)

func testController(t *testing.T, client *llm.MockClient) (*Controller, *store.MemorySessionStore) {
	t.Helper()
	sessions := store.NewMemorySessionStore()
	ctrl := New(client, sessions, logging.New(nil, "silent"))
	return ctrl, sessions
}

func signedIn(ctrl *Controller) {
	ctrl.SetIdentity(domain.Identity{ID: "user-1", DisplayName: "Ada"})
}

func TestStartValidatesBeforeCalling(t *testing.T) {
	client := &llm.MockClient{}
	ctrl, _ := testController(t, client)

	_, err := ctrl.Start(context.Background(), "   ", "func main() {}")
	assert.ErrorIs(t, err, ErrEmptyProblem)

	_, err = ctrl.Start(context.Background(), "Two Sum", " \n\t")
	assert.ErrorIs(t, err, ErrEmptyCode)

	assert.Equal(t, 0, client.Calls, "validation failures must not reach the model")

	snap := ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Transcript)
	assert.NotEmpty(t, snap.LastError)
}

func TestStartOpensWithInterviewerTurn(t *testing.T) {
	var captured []domain.Turn
	client := &llm.MockClient{
		ConverseFunc: func(_ context.Context, history []domain.Turn) (string, error) {
			captured = append([]domain.Turn(nil), history...)
			return "Walk me through your approach.", nil
		},
	}
	ctrl, _ := testController(t, client)

	snap, err := ctrl.Start(context.Background(), "Two Sum", "def two_sum(nums, target): ...")
	require.NoError(t, err)

	require.Len(t, captured, 1)
	assert.Equal(t, domain.RoleCandidate, captured[0].Role)
	assert.Contains(t, captured[0].Text, "Two Sum")
	assert.Contains(t, captured[0].Text, "def two_sum")

	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, domain.RoleInterviewer, snap.Transcript[0].Role)
	assert.Equal(t, "Walk me through your approach.", snap.Transcript[0].Text)
	assert.Equal(t, StateActive, snap.State)
	assert.False(t, snap.Busy)
	assert.Empty(t, snap.LastError)
}

func TestStartPersistsWhenSignedIn(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	snap, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	require.NotEmpty(t, snap.ActiveSessionID)

	sess, err := sessions.Get(context.Background(), "user-1", snap.ActiveSessionID)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", sess.Problem)
	require.Len(t, sess.Turns, 1)
	assert.Equal(t, domain.RoleInterviewer, sess.Turns[0].Role)
}

func TestStartAnonymousSkipsPersistence(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})

	snap, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	assert.Empty(t, snap.ActiveSessionID)
	assert.Empty(t, snap.LastError)
	assert.Empty(t, mustList(t, sessions, "user-1"))
}

func mustList(t *testing.T, s store.SessionStore, owner string) []domain.Session {
	t.Helper()
	list, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	return list
}

func TestStartFailureLeavesRetryableState(t *testing.T) {
	client := &llm.MockClient{
		ConverseFunc: func(context.Context, []domain.Turn) (string, error) {
			return "", &llm.TransportError{StatusCode: 503, Body: "overloaded"}
		},
	}
	ctrl, sessions := testController(t, client)
	signedIn(ctrl)

	snap, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.Error(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Transcript)
	assert.Equal(t, "Two Sum", snap.Problem, "drafts survive for retry")
	assert.NotEmpty(t, snap.LastError)
	assert.Empty(t, mustList(t, sessions, "user-1"), "nothing persisted on opening failure")

	// Retry succeeds.
	client.ConverseFunc = nil
	snap, err = ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	assert.Equal(t, StateActive, snap.State)
	assert.Empty(t, snap.LastError)
}

func TestSendAlternatesTurns(t *testing.T) {
	ctrl, _ := testController(t, &llm.MockClient{})

	_, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		snap, err := ctrl.Send(context.Background(), "I would use a hash map.")
		require.NoError(t, err)
		require.Len(t, snap.Transcript, 1+2*(i+1))
	}

	snap := ctrl.Snapshot()
	for i, turn := range snap.Transcript {
		want := domain.RoleInterviewer
		if i%2 == 1 {
			want = domain.RoleCandidate
		}
		assert.Equalf(t, want, turn.Role, "turn %d", i)
	}
}

func TestSendRejectsBlankAndIdle(t *testing.T) {
	client := &llm.MockClient{}
	ctrl, _ := testController(t, client)

	_, err := ctrl.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	calls := client.Calls

	_, err = ctrl.Send(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, calls, client.Calls)
}

func TestSendFailureAppendsApology(t *testing.T) {
	client := &llm.MockClient{}
	ctrl, _ := testController(t, client)

	_, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)

	client.ConverseFunc = func(context.Context, []domain.Turn) (string, error) {
		return "", llm.ErrEmptyOrBlocked
	}
	snap, err := ctrl.Send(context.Background(), "Is O(n) okay?")
	require.Error(t, err)

	require.Len(t, snap.Transcript, 3)
	assert.Equal(t, domain.RoleCandidate, snap.Transcript[1].Role)
	assert.Equal(t, domain.RoleInterviewer, snap.Transcript[2].Role)
	assert.Equal(t, apologyText, snap.Transcript[2].Text)
	assert.False(t, snap.Busy)
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, blockedText, snap.LastError)

	// The conversation continues after the apology.
	client.ConverseFunc = nil
	snap, err = ctrl.Send(context.Background(), "Let me restate that.")
	require.NoError(t, err)
	assert.Len(t, snap.Transcript, 5)
	assert.Empty(t, snap.LastError)
}

func TestSendPersistsTranscript(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	snap, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)

	_, err = ctrl.Send(context.Background(), "Hash map, one pass.")
	require.NoError(t, err)

	sess, err := sessions.Get(context.Background(), "user-1", snap.ActiveSessionID)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 3)
	assert.Equal(t, "Hash map, one pass.", sess.Turns[1].Text)
}

func TestSendWhileBusyIsRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	client := &llm.MockClient{
		ConverseFunc: func(context.Context, []domain.Turn) (string, error) {
			close(started)
			<-release
			return "reply", nil
		},
	}
	ctrl, _ := testController(t, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = ctrl.Start(context.Background(), "Two Sum", "code")
	}()
	<-started

	assert.True(t, ctrl.Snapshot().Busy)
	_, err := ctrl.Send(context.Background(), "too early")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = ctrl.Start(context.Background(), "Another", "code")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
	assert.False(t, ctrl.Snapshot().Busy)
}

func TestNewChatDiscardsInFlightReply(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	client := &llm.MockClient{
		ConverseFunc: func(context.Context, []domain.Turn) (string, error) {
			close(started)
			<-release
			return "stale opening", nil
		},
	}
	ctrl, _ := testController(t, client)

	errCh := make(chan error, 1)
	go func() {
		_, err := ctrl.Start(context.Background(), "Two Sum", "code")
		errCh <- err
	}()
	<-started

	snap := ctrl.NewChat()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Problem)

	close(release)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	snap = ctrl.Snapshot()
	assert.Empty(t, snap.Transcript, "stale reply must not land in the new chat")
	assert.Equal(t, StateIdle, snap.State)
}

func TestNewChatKeepsPersistedSessions(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	snap, err := ctrl.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	id := snap.ActiveSessionID

	ctrl.NewChat()

	_, err = sessions.Get(context.Background(), "user-1", id)
	assert.NoError(t, err, "new chat never deletes stored sessions")
}

func TestSelectSessionLoadsTranscript(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	stored, err := sessions.Create(context.Background(), "user-1", "Reverse List", "def rev(l): ...", []domain.Turn{
		{Role: domain.RoleInterviewer, Text: "Why recursion?"},
		{Role: domain.RoleCandidate, Text: "Stack depth is bounded."},
		{Role: domain.RoleInterviewer, Text: "Is it?"},
	})
	require.NoError(t, err)

	snap, err := ctrl.SelectSession(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "Reverse List", snap.Problem)
	assert.Equal(t, stored.ID, snap.ActiveSessionID)
	require.Len(t, snap.Transcript, 3)

	// Conversation resumes against the loaded history.
	var got []domain.Turn
	client := &llm.MockClient{ConverseFunc: func(_ context.Context, history []domain.Turn) (string, error) {
		got = history
		return "Good point.", nil
	}}
	ctrl.client = client
	_, err = ctrl.Send(context.Background(), "The list fits in memory.")
	require.NoError(t, err)
	require.Len(t, got, 4)
}

func TestSelectSessionReplacesEntireTranscript(t *testing.T) {
	ctrl, sessions := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	sessA, err := sessions.Create(context.Background(), "user-1", "Two Sum", "code-a", []domain.Turn{
		{Role: domain.RoleInterviewer, Text: "A opening"},
		{Role: domain.RoleCandidate, Text: "A answer"},
		{Role: domain.RoleInterviewer, Text: "A follow-up"},
	})
	require.NoError(t, err)
	sessB, err := sessions.Create(context.Background(), "user-1", "Reverse List", "code-b", []domain.Turn{
		{Role: domain.RoleInterviewer, Text: "B opening"},
	})
	require.NoError(t, err)

	_, err = ctrl.SelectSession(context.Background(), sessA.ID)
	require.NoError(t, err)

	snap, err := ctrl.SelectSession(context.Background(), sessB.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reverse List", snap.Problem)
	assert.Equal(t, "code-b", snap.Code)
	assert.Equal(t, sessB.ID, snap.ActiveSessionID)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, "B opening", snap.Transcript[0].Text)
	for _, turn := range snap.Transcript {
		assert.NotContains(t, turn.Text, "A ", "first session's turns must not survive the switch")
	}
}

func TestSelectSessionRequiresIdentity(t *testing.T) {
	ctrl, _ := testController(t, &llm.MockClient{})

	_, err := ctrl.SelectSession(context.Background(), "whatever")
	assert.ErrorIs(t, err, store.ErrNotAuthenticated)
}

func TestSelectSessionUnknownID(t *testing.T) {
	ctrl, _ := testController(t, &llm.MockClient{})
	signedIn(ctrl)

	snap, err := ctrl.SelectSession(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.NotEmpty(t, snap.LastError)
}

func TestRegistryIsolatesInstances(t *testing.T) {
	reg := NewRegistry(&llm.MockClient{}, store.NewMemorySessionStore(), logging.New(nil, "silent"))

	a := reg.Controller("tab-a")
	b := reg.Controller("tab-b")
	require.NotSame(t, a, b)
	assert.Same(t, a, reg.Controller("tab-a"))

	_, err := a.Start(context.Background(), "Two Sum", "code")
	require.NoError(t, err)
	assert.Equal(t, StateActive, a.Snapshot().State)
	assert.Equal(t, StateIdle, b.Snapshot().State)

	// Identity is pinned per controller, never across instances.
	a.SetIdentity(domain.Identity{ID: "user-9"})
	assert.Equal(t, "user-9", a.owner.ID)
	assert.Empty(t, b.owner.ID)
}

func TestTwoSumScenario(t *testing.T) {
	replies := []string{
		"Explain your approach before writing code.",
		"What is the time complexity of the nested loop?",
		"Can you do better than O(n^2)?",
	}
	i := 0
	client := &llm.MockClient{ConverseFunc: func(context.Context, []domain.Turn) (string, error) {
		reply := replies[i%len(replies)]
		i++
		return reply, nil
	}}
	ctrl, sessions := testController(t, client)
	signedIn(ctrl)

	problem := "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target."
	code := "def two_sum(nums, target):\n    for i in range(len(nums)):\n        for j in range(i+1, len(nums)):\n            if nums[i] + nums[j] == target:\n                return [i, j]"

	snap, err := ctrl.Start(context.Background(), problem, code)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snap.Transcript[0].Text, "Explain"))

	snap, err = ctrl.Send(context.Background(), "Brute force over all pairs.")
	require.NoError(t, err)
	snap, err = ctrl.Send(context.Background(), "O(n^2); a hash map makes it O(n).")
	require.NoError(t, err)

	require.Len(t, snap.Transcript, 5)
	sess, err := sessions.Get(context.Background(), "user-1", snap.ActiveSessionID)
	require.NoError(t, err)
	assert.Equal(t, snap.Transcript, sess.Turns)
}

func TestErrorMessageMapping(t *testing.T) {
	assert.Equal(t, blockedText, errorMessage(llm.ErrEmptyOrBlocked))
	msg := errorMessage(&llm.TransportError{StatusCode: 429, Body: "quota"})
	assert.Contains(t, msg, "429")
	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}
