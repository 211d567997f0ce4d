package property

import (
	"context"
	"math"
)

// SearchResult pairs a matched listing with its cover image for rendering.
type SearchResult struct {
	Property Property
	CoverURL string
}

// SearchPage is one page of directory-search output.
type SearchPage struct {
	Results    []SearchResult
	Total      int64
	Page       int
	TotalPages int
}

// Search runs a case-insensitive substring match across owner name, owner
// company, title, address and district. page is 1-based and clamped by the
// caller; pageSize must be positive.
func (s *Store) Search(ctx context.Context, query string, page, pageSize int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	pattern := likePattern(query)
	where := `LOWER(owner_name) LIKE ? ESCAPE '\' OR LOWER(owner_company) LIKE ? ESCAPE '\' OR ` +
		`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\' OR LOWER(district) LIKE ? ESCAPE '\'`

	var total int64
	var rows []Property
	err := withRetry(func() error {
		q := s.db.WithContext(ctx).Model(&Property{}).
			Where(where, pattern, pattern, pattern, pattern, pattern)
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("created_at DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&rows).Error
	}, 3)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(rows))
	for _, p := range rows {
		cover, err := s.CoverImageURL(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Property: p, CoverURL: cover})
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	return &SearchPage{
		Results:    results,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}
