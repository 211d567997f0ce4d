package property

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Property{}, &Image{}, &ProximityScore{}, &RegistrationRequest{}); err != nil {
		return nil, fmt.Errorf("migrate property schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Create persists a listing with its ordered images in one transaction.
func (s *Store) Create(ctx context.Context, p *Property, images []Image) error {
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			for i := range images {
				images[i].PropertyID = p.ID
				images[i].Position = i + 1
			}
			if len(images) > 0 {
				if err := tx.Create(&images).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}, 3)
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Property, error) {
	var p Property
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetByListingNumber(ctx context.Context, number string) (*Property, error) {
	var p Property
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Where("listing_number = ?", number).First(&p).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Recent returns the newest listings, used for short numbered pick lists.
func (s *Store) Recent(ctx context.Context, limit int) ([]Property, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []Property
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	}, 3)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerFields carries the owner-contact update.
type OwnerFields struct {
	Name       string
	Phone      string
	Company    string
	Commission float64
}

func (s *Store) UpdateOwner(ctx context.Context, id string, f OwnerFields) error {
	var affected int64
	err := withRetry(func() error {
		res := s.db.WithContext(ctx).Model(&Property{}).Where("id = ?", id).Updates(map[string]any{
			"owner_name":       f.Name,
			"owner_phone":      f.Phone,
			"owner_company":    f.Company,
			"owner_commission": f.Commission,
		})
		affected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("update owner fields: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveScores replaces the proximity scores for a listing.
func (s *Store) SaveScores(ctx context.Context, propertyID string, scores []ProximityScore) error {
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("property_id = ?", propertyID).Delete(&ProximityScore{}).Error; err != nil {
				return err
			}
			for i := range scores {
				scores[i].PropertyID = propertyID
			}
			if len(scores) == 0 {
				return nil
			}
			return tx.Create(&scores).Error
		})
	}, 3)
	if err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	return nil
}

// SlugExists reports whether a slug is already taken, for disambiguation.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Model(&Property{}).Where("slug = ?", slug).Count(&count).Error
	}, 3)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextListingNumber allocates the next canonical listing number.
func (s *Store) NextListingNumber(ctx context.Context) (string, error) {
	var count int64
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Model(&Property{}).Count(&count).Error
	}, 3)
	if err != nil {
		return "", err
	}
	for {
		candidate, _ := CanonicalListingNumber(fmt.Sprintf("%d", count+1))
		var exists int64
		if err := s.db.WithContext(ctx).Model(&Property{}).
			Where("listing_number = ?", candidate).Count(&exists).Error; err != nil {
			return "", err
		}
		if exists == 0 {
			return candidate, nil
		}
		count++
	}
}

func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.ReplaceAll(q, "%", `\%`)
	q = strings.ReplaceAll(q, "_", `\_`)
	return "%" + q + "%"
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
