// Package maplink extracts coordinates from shared map URLs. Short links
// are resolved by following redirects first; the resolved URL is then
// matched against the coordinate encodings the major map apps use.
package maplink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxRedirects = 6

var shortLinkHosts = []string{
	"maps.app.goo.gl",
	"goo.gl",
	"g.co",
	"bit.ly",
}

var mapHosts = []string{
	"google.com",
	"www.google.com",
	"maps.google.com",
	"maps.apple.com",
	"openstreetmap.org",
	"www.openstreetmap.org",
}

// Ordered by specificity: the !3d..!4d.. pin encoding is the exact marker
// position, the @lat,lng form is only the viewport center.
var coordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`),
	regexp.MustCompile(`[?&]q=(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)`),
	regexp.MustCompile(`[?&]ll=(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)`),
	regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`[?&]mlat=(-?\d+\.?\d*)&mlon=(-?\d+\.?\d*)`),
}

type Coords struct {
	Lat float64
	Lng float64
}

type Resolver struct {
	HTTP *http.Client
}

func NewResolver(httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	return &Resolver{HTTP: httpClient}
}

// IsMapURL reports whether text looks like a shareable map link worth
// attempting extraction on.
func IsMapURL(text string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		return false
	}
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, h := range append(append([]string(nil), shortLinkHosts...), mapHosts...) {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(text), "maps")
}

// Extract resolves short links and pattern-matches coordinates out of the
// final URL. Network access only happens for known short-link hosts.
func (r *Resolver) Extract(ctx context.Context, rawURL string) (Coords, error) {
	rawURL = strings.TrimSpace(rawURL)
	if c, ok := matchCoords(rawURL); ok {
		return c, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Coords{}, fmt.Errorf("parse map url: %w", err)
	}
	if isShortLinkHost(u.Host) {
		resolved, err := r.resolve(ctx, rawURL)
		if err != nil {
			return Coords{}, err
		}
		if c, ok := matchCoords(resolved); ok {
			return c, nil
		}
	}
	return Coords{}, fmt.Errorf("no coordinates found in %s", u.Host)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve short link: %w", err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if loc := resp.Header.Get("Location"); loc != "" && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		final = loc
	}
	return final, nil
}

func isShortLinkHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range shortLinkHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func matchCoords(s string) (Coords, bool) {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		decoded = s
	}
	for _, pat := range coordPatterns {
		m := pat.FindStringSubmatch(decoded)
		if m == nil {
			continue
		}
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lng, errLng := strconv.ParseFloat(m[2], 64)
		if errLat != nil || errLng != nil {
			continue
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			continue
		}
		return Coords{Lat: lat, Lng: lng}, true
	}
	return Coords{}, false
}
