package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("session not found")

var terminalStatuses = []Status{StatusCompleted, StatusCancelled, StatusError}

// Store persists sessions. It is flow-agnostic: transition rules live in
// the flow handlers, the store only enforces the single-active invariant
// and the lifecycle timestamps.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewStore(db *gorm.DB, ttl time.Duration) (*Store, error) {
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("migrate sessions schema: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl}, nil
}

// GetActive returns the one non-terminal session for the identity, or
// ErrNotFound.
func (s *Store) GetActive(ctx context.Context, identity string) (*Session, error) {
	var sess Session
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where("channel_identity = ? AND status NOT IN ?", identity, terminalStatuses).
			Order("created_at DESC").
			First(&sess).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// Create opens a new session in the given initial status. Any session still
// active for the identity is cancelled in the same transaction, so two
// near-simultaneous creates cannot leave both rows active.
func (s *Store) Create(ctx context.Context, identity, initiator string, initial Status) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:              uuid.NewString(),
		ChannelIdentity: identity,
		InitiatorName:   initiator,
		Status:          initial,
		ExpiresAt:       now.Add(s.ttl),
	}
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&Session{}).
				Where("channel_identity = ? AND status NOT IN ?", identity, terminalStatuses).
				Update("status", StatusCancelled).Error; err != nil {
				return err
			}
			return tx.Create(sess).Error
		})
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetLatest returns the most recent session for the identity regardless of
// status. Used to answer a stray "confirm" sent after the session already
// finished.
func (s *Store) GetLatest(ctx context.Context, identity string) (*Session, error) {
	var sess Session
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where("channel_identity = ?", identity).
			Order("created_at DESC").
			First(&sess).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// SetStatus moves a session to a new status. Transitioning to Completed
// stamps completed_at; transitioning to Error records the message.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	updates := map[string]any{"status": status}
	if status == StatusCompleted {
		now := time.Now().UTC()
		updates["completed_at"] = &now
	}
	if status == StatusError {
		updates["error_message"] = errorMessage
	}
	return s.update(ctx, id, updates)
}

func (s *Store) Cancel(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusCancelled, "")
}

// Typed per-flow scratch setters. Each persists only its own sub-record so
// flows never clobber one another's data.

func (s *Store) SaveListingDraft(ctx context.Context, id string, d ListingDraft) error {
	return s.update(ctx, id, map[string]any{"listing": d})
}

func (s *Store) SaveOwnerDraft(ctx context.Context, id string, d OwnerDraft) error {
	return s.update(ctx, id, map[string]any{"owner": d})
}

func (s *Store) SaveSearchState(ctx context.Context, id string, st SearchState) error {
	return s.update(ctx, id, map[string]any{"search": st})
}

func (s *Store) SavePhotoDraft(ctx context.Context, id string, d PhotoDraft) error {
	return s.update(ctx, id, map[string]any{"photos": d})
}

func (s *Store) SaveRegistrationDraft(ctx context.Context, id string, d RegistrationDraft) error {
	return s.update(ctx, id, map[string]any{"registration": d})
}

// CleanupExpired removes sessions past their TTL. Completed sessions are
// retained as an audit trail.
func (s *Store) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).
			Where("expires_at < ? AND status <> ?", now.UTC(), StatusCompleted).
			Delete(&Session{})
		removed = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return removed, nil
}

func (s *Store) update(ctx context.Context, id string, updates map[string]any) error {
	var affected int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
