package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
)

const snapshotVersion = 1

// Snapshot is the persisted browser session: cookies plus enough metadata
// to reject stale or incompatible files. The blob is credential-equivalent,
// so it is written 0600 and never logged in full.
type Snapshot struct {
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	UserAgent string    `json:"user_agent"`
	Cookies   []Cookie  `json:"cookies"`
}

// Cookie mirrors the DevTools cookie shape we need to round-trip.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site"`
}

// SaveSnapshot writes the session file with owner-only permissions.
func SaveSnapshot(path string, snap *Snapshot) error {
	snap.Version = snapshotVersion
	snap.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// LoadSnapshot reads the session file. A missing file is not an error; the
// caller starts unauthenticated. An unreadable or wrong-version file is
// discarded the same way.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}
	if snap.Version != snapshotVersion {
		return nil, nil
	}
	return &snap, nil
}

func snapshotFromCookies(cookies []*network.Cookie, userAgent string) *Snapshot {
	snap := &Snapshot{UserAgent: userAgent}
	for _, c := range cookies {
		snap.Cookies = append(snap.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return snap
}

func (s *Snapshot) cookieParams() []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			t := cdpTimeSinceEpoch(c.Expires)
			p.Expires = &t
		}
		params = append(params, p)
	}
	return params
}
