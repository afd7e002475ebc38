package session

import (
	"context"
	"fmt"

	"github.com/doeshing/promptmate/internal/domain"
)

// Manager drives one session. It is not safe for concurrent use.
type Manager struct {
	svc        *Service
	session    *domain.Session
	lastIntent *domain.IntentRecord
}

// ID returns the session id.
func (m *Manager) ID() string { return m.session.ID }

// Session returns the live session aggregate.
func (m *Manager) Session() *domain.Session { return m.session }

// UpdateRole sets the persona the final prompt asks the model to adopt.
func (m *Manager) UpdateRole(ctx context.Context, role string) error {
	m.session.Role = role
	return m.save(ctx, "role updated", map[string]interface{}{"role": role})
}

// UpdateTask sets the session task.
func (m *Manager) UpdateTask(ctx context.Context, task string) error {
	m.session.Task = task
	return m.save(ctx, "task updated", map[string]interface{}{"task": task})
}

// AddContext stores one context entry.
func (m *Manager) AddContext(ctx context.Context, key, value string) error {
	m.session.AddContext(key, value)
	return m.save(ctx, "context added", map[string]interface{}{"key": key})
}

// UpdateContext merges several context entries at once.
func (m *Manager) UpdateContext(ctx context.Context, entries map[string]string) error {
	m.session.MergeContext(entries)
	return m.save(ctx, "context updated", map[string]interface{}{"keys": len(entries)})
}

// AddConstraint appends a constraint. Duplicates are ignored without a write.
func (m *Manager) AddConstraint(ctx context.Context, constraint string) error {
	if !m.session.AddConstraint(constraint) {
		return nil
	}
	return m.save(ctx, "constraint added", map[string]interface{}{"constraint": constraint})
}

// LearnPreference records a user preference on the session.
func (m *Manager) LearnPreference(ctx context.Context, key string, value any) error {
	m.session.LearnPreference(key, value)
	return m.save(ctx, "preference learned", map[string]interface{}{"key": key})
}

func (m *Manager) save(ctx context.Context, msg string, fields map[string]interface{}) error {
	m.session.UpdatedAt = m.svc.now()
	if err := m.svc.Sessions.SaveSession(ctx, m.session); err != nil {
		return fmt.Errorf("save session %s: %w", m.session.ID, err)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["session_id"] = m.session.ID
	m.svc.Logger.Debug(msg, fields)
	return nil
}
