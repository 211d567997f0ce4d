package property

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Images returns a listing's photos ordered by position.
func (s *Store) Images(ctx context.Context, propertyID string) ([]Image, error) {
	var out []Image
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where("property_id = ?", propertyID).
			Order("position ASC").
			Find(&out).Error
	}, 3)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddImage appends a photo at the next free position.
func (s *Store) AddImage(ctx context.Context, propertyID, url, altText string) (int, error) {
	position := 0
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxPos int
			if err := tx.Model(&Image{}).
				Where("property_id = ?", propertyID).
				Select("COALESCE(MAX(position), 0)").
				Scan(&maxPos).Error; err != nil {
				return err
			}
			position = maxPos + 1
			return tx.Create(&Image{
				PropertyID: propertyID,
				Position:   position,
				URL:        url,
				AltText:    altText,
			}).Error
		})
	}, 3)
	if err != nil {
		return 0, fmt.Errorf("add image: %w", err)
	}
	return position, nil
}

// ReplaceImage swaps the photo at a position for a new URL, keeping the
// position itself.
func (s *Store) ReplaceImage(ctx context.Context, propertyID string, position int, url, altText string) error {
	var affected int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).Model(&Image{}).
			Where("property_id = ? AND position = ?", propertyID, position).
			Updates(map[string]any{"url": url, "alt_text": altText})
		affected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("replace image: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteImage removes the photo at a position and closes the gap so
// positions stay contiguous from 1. Deleting position 1 promotes the next
// photo to cover. Deleting the only photo is refused.
func (s *Store) DeleteImage(ctx context.Context, propertyID string, position int) error {
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&Image{}).Where("property_id = ?", propertyID).Count(&count).Error; err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastImage
			}

			res := tx.Where("property_id = ? AND position = ?", propertyID, position).Delete(&Image{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}

			// Shift everything after the gap down one slot.
			return tx.Model(&Image{}).
				Where("property_id = ? AND position > ?", propertyID, position).
				UpdateColumn("position", gorm.Expr("position - 1")).Error
		})
	}, 3)
	if err != nil {
		return err
	}
	return nil
}

// CoverImageURL returns the position-1 photo URL, or "".
func (s *Store) CoverImageURL(ctx context.Context, propertyID string) (string, error) {
	var img Image
	err := withRetry(func() error {
		return s.db.WithContext(ctx).
			Where("property_id = ? AND position = 1", propertyID).
			First(&img).Error
	}, 3)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return img.URL, nil
}
