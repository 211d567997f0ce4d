package property

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// CreateRegistration persists a new registration request.
func (s *Store) CreateRegistration(ctx context.Context, req *RegistrationRequest) error {
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Create(req).Error
	}, 3)
	if err != nil {
		return fmt.Errorf("create registration request: %w", err)
	}
	return nil
}

// FindIdentityByPhone returns the most recent non-failed registration for
// the phone that already has an identity document on file. This backs the
// owner-recognition shortcut.
func (s *Store) FindIdentityByPhone(ctx context.Context, phone string) (*RegistrationRequest, error) {
	var req RegistrationRequest
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where("phone = ? AND status <> ? AND id_document_url <> ''", phone, RegistrationFailed).
			Order("created_at DESC").
			First(&req).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// GetRegistrationByID fetches one request.
func (s *Store) GetRegistrationByID(ctx context.Context, id string) (*RegistrationRequest, error) {
	var req RegistrationRequest
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// SetRegistrationStatus updates a request's status and, when set, its
// external workflow id.
func (s *Store) SetRegistrationStatus(ctx context.Context, id, status, externalID string) error {
	updates := map[string]any{"status": status}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	var affected int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).Model(&RegistrationRequest{}).Where("id = ?", id).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("set registration status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRegistrationByExternalID resolves the request an external completion
// signal refers to.
func (s *Store) GetRegistrationByExternalID(ctx context.Context, externalID string) (*RegistrationRequest, error) {
	var req RegistrationRequest
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&req).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}
