package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Directory search flow: free-text query, paged results, next/prev to
// page through, any other text starts a fresh search.

const minQueryLength = 2

func (e *Engine) handleSearchQuery(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	query := strings.TrimSpace(cmd.Text)
	if len([]rune(query)) < minQueryLength {
		return Textf("Search needs at least %d characters. %s", minQueryLength, msgAskSearchQuery), nil
	}
	return e.runSearch(ctx, sess, query, 1)
}

func (e *Engine) handleSearchResults(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error) {
	switch {
	case cmd.Is(normalize.IntentNext):
		return e.runSearch(ctx, sess, sess.Search.Query, sess.Search.Page+1)
	case cmd.Is(normalize.IntentPrev):
		return e.runSearch(ctx, sess, sess.Search.Query, sess.Search.Page-1)
	}
	// Anything else is a new query.
	return e.handleSearchQuery(ctx, sess, cmd)
}

func (e *Engine) runSearch(ctx context.Context, sess *session.Session, query string, page int) (Response, error) {
	if page < 1 {
		page = 1
	}
	result, err := e.properties.Search(ctx, query, page, e.cfg.PageSize)
	if err != nil {
		return Response{}, err
	}
	// Paging past the end re-renders the last page instead of an empty one.
	if page > result.TotalPages {
		result, err = e.properties.Search(ctx, query, result.TotalPages, e.cfg.PageSize)
		if err != nil {
			return Response{}, err
		}
	}

	sess.Search.Query = query
	sess.Search.Page = result.Page
	if err := e.sessions.SaveSearchState(ctx, sess.ID, sess.Search); err != nil {
		return Response{}, err
	}
	if err := e.sessions.SetStatus(ctx, sess.ID, session.StatusSearchShowingResults, ""); err != nil {
		return Response{}, err
	}

	if result.Total == 0 {
		return Textf("No listings matched %q. Try a different owner, title or area.", query), nil
	}
	return renderSearchPage(query, result, e.cfg.PageSize), nil
}

// renderSearchPage emits one header message, one message per result (with
// the cover image when there is one), and a pagination footer.
func renderSearchPage(query string, page *property.SearchPage, pageSize int) Response {
	var resp Response
	resp.AddText(fmt.Sprintf("Found %d listing(s) for %q — page %d of %d:",
		page.Total, query, page.Page, page.TotalPages))

	base := (page.Page - 1) * pageSize
	for i, r := range page.Results {
		caption := searchResultCaption(base+i+1, r.Property)
		if r.CoverURL != "" {
			resp.AddImage(r.CoverURL, caption)
		} else {
			resp.AddText(caption)
		}
	}

	if page.TotalPages > 1 {
		footer := "Type *next* for more results"
		if page.Page > 1 {
			footer += ", *prev* to go back"
		}
		footer += ", or send a new search."
		resp.AddText(footer)
	} else {
		resp.AddText("Send another name or area to search again.")
	}
	return resp
}

func searchResultCaption(index int, p property.Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s — %s\n", index, p.ListingNumber, p.Title)
	fmt.Fprintf(&b, "%s, %s · ฿%s", titleCase(p.PropertyType), forLabel(p.ListingType), formatTHB(p.Price))
	if p.Bedrooms > 0 || p.Bathrooms > 0 {
		fmt.Fprintf(&b, " · %d bed / %d bath", p.Bedrooms, p.Bathrooms)
	}
	if p.District != "" {
		b.WriteString("\n📍 " + p.District)
	}
	if p.OwnerName != "" {
		b.WriteString("\n👤 " + p.OwnerName)
		if p.OwnerPhone != "" {
			b.WriteString(" · " + p.OwnerPhone)
		}
	}
	return b.String()
}
