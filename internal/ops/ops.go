// Package ops implements every user-facing operation: capture, resolution,
// queries, annotations, and maintenance. Operations are pure functions over
// an Env, so the CLI and MCP surfaces share one implementation.
package ops

import (
	"time"

	"github.com/calebsh/offcut/internal/config"
	"github.com/calebsh/offcut/internal/manifest"
	"github.com/calebsh/offcut/internal/store"
)

// Env carries the collaborators every operation needs. Session identity and
// the clock are explicit here rather than ambient state.
type Env struct {
	Cfg       *config.Config
	Log       *manifest.Log
	Store     *store.Store
	SessionID string
	Now       func() time.Time
}

// NewEnv wires an Env over dataDir with the given config and session.
func NewEnv(dataDir string, cfg *config.Config, sessionID string) *Env {
	st := store.New(dataDir)
	return &Env{
		Cfg:       cfg,
		Log:       manifest.New(st.IndexDir()),
		Store:     st,
		SessionID: sessionID,
		Now:       time.Now,
	}
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// creationWindow bounds how many creation records query operations consider.
const creationWindow = 200
