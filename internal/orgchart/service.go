// Package orgchart is the query and mutation layer of organigrama.
//
// A Service scopes every person, department and assignment operation to the
// active workspace. The active workspace is kept in a prefs.Store so it
// survives restarts, and other processes sharing the store converge on it
// through Follow.
package orgchart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Service is one editing session over an entity store.
type Service struct {
	store *sqlite.Backend
	hub   *live.Hub
	prefs prefs.Store
	log   zerolog.Logger

	mu     sync.RWMutex
	active string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a session. The store should have been opened with hub as its
// notifier so live queries see every write. Call Load before use.
func New(store *sqlite.Backend, hub *live.Hub, p prefs.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		hub:   hub,
		prefs: p,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Service) Store() *sqlite.Backend {
	return s.store
}

// Hub returns the change hub live queries subscribe to.
func (s *Service) Hub() *live.Hub {
	return s.hub
}

// Load restores the active workspace from the preference store. When the
// stored id is missing or names a deleted workspace, the oldest workspace is
// selected and persisted instead. With no workspaces at all the session has
// no active workspace.
func (s *Service) Load(ctx context.Context) error {
	id, err := s.prefs.Get(prefs.KeyActiveWorkspace)
	if err != nil {
		return fmt.Errorf("reading active workspace: %w", err)
	}
	if id != "" {
		_, err := s.store.Workspaces().Get(ctx, id)
		if err == nil {
			s.setActive(id)
			return nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		s.log.Warn().Str("workspace_id", id).Msg("stored active workspace no longer exists")
	}

	first, found, err := s.store.Workspaces().First(ctx)
	if err != nil {
		return err
	}
	if !found {
		s.setActive("")
		return nil
	}
	s.log.Info().Str("workspace_id", first.ID).Str("name", first.Name).Msg("selecting first workspace")
	return s.activate(first.ID)
}

// ActiveWorkspaceID returns the active workspace id, or "" when none.
func (s *Service) ActiveWorkspaceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ActiveWorkspace returns the active workspace record.
func (s *Service) ActiveWorkspace(ctx context.Context) (types.Workspace, error) {
	id := s.ActiveWorkspaceID()
	if id == "" {
		return types.Workspace{}, types.ErrNoActiveWorkspace
	}
	return s.store.Workspaces().Get(ctx, id)
}

// SwitchWorkspace makes id the active workspace, persists the choice and
// broadcasts it to other sessions sharing the preference store.
func (s *Service) SwitchWorkspace(ctx context.Context, id string) error {
	if _, err := s.store.Workspaces().Get(ctx, id); err != nil {
		return err
	}
	return s.activate(id)
}

// Follow adopts active-workspace changes made by other sessions until ctx
// is cancelled. Changes naming unknown workspaces are ignored.
func (s *Service) Follow(ctx context.Context) error {
	ch, err := s.prefs.Watch(ctx, prefs.KeyActiveWorkspace)
	if err != nil {
		return fmt.Errorf("watching active workspace: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-ch:
			if !ok {
				return nil
			}
			if id == s.ActiveWorkspaceID() {
				continue
			}
			if _, err := s.store.Workspaces().Get(ctx, id); err != nil {
				s.log.Debug().Err(err).Str("workspace_id", id).Msg("ignoring active workspace change")
				continue
			}
			s.log.Info().Str("workspace_id", id).Msg("active workspace changed elsewhere")
			s.setActive(id)
		}
	}
}

// activate sets, persists and broadcasts the active workspace.
func (s *Service) activate(id string) error {
	s.setActive(id)
	if err := s.prefs.Set(prefs.KeyActiveWorkspace, id); err != nil {
		return fmt.Errorf("persisting active workspace: %w", err)
	}
	return nil
}

func (s *Service) setActive(id string) {
	s.mu.Lock()
	changed := s.active != id
	s.active = id
	s.mu.Unlock()
	if changed && s.hub != nil {
		s.hub.Notify(live.TopicActiveWorkspace)
	}
}

// scope returns the active workspace id or ErrNoActiveWorkspace.
func (s *Service) scope() (string, error) {
	id := s.ActiveWorkspaceID()
	if id == "" {
		return "", types.ErrNoActiveWorkspace
	}
	return id, nil
}

// inScope checks that a record found through owner belongs to the active
// workspace. Records of other workspaces are reported as not found.
func (s *Service) inScope(ctx context.Context, what, id string,
	owner func(context.Context, string) (string, bool, error)) (string, error) {
	ws, err := s.scope()
	if err != nil {
		return "", err
	}
	got, found, err := owner(ctx, id)
	if err != nil {
		return "", err
	}
	if !found || got != ws {
		return "", fmt.Errorf("%s %s: %w", what, id, types.ErrNotFound)
	}
	return ws, nil
}
