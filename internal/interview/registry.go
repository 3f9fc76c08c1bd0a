package interview

import (
	"sync"

	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/logging"
	"github.com/mockmate/mockmate/internal/store"
)

// Registry hands out one Controller per open UI instance, keyed by the
// UI's instance cookie. Two browser tabs get independent conversations.
type Registry struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	client   llm.Client
	sessions store.SessionStore
	log      *logging.Logger
}

func NewRegistry(client llm.Client, sessions store.SessionStore, log *logging.Logger) *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		client:      client,
		sessions:    sessions,
		log:         log,
	}
}

// Controller returns the controller for the given UI instance, creating
// an idle one on first use.
func (r *Registry) Controller(uiID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctrl, ok := r.controllers[uiID]
	if !ok {
		ctrl = New(r.client, r.sessions, r.log)
		r.controllers[uiID] = ctrl
	}
	return ctrl
}
