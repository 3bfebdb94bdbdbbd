package browser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/pkg/errors"
)

// Session is a storage-state file: the cookies of an authenticated browser.
// The layout is the one Playwright writes, so existing session files can be
// reused as is.
type Session struct {
	Cookies []Cookie          `json:"cookies"`
	Origins []json.RawMessage `json:"origins"`
}

// Cookie is one stored cookie. Expires is in Unix seconds, -1 for session
// cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "browser: read session")
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "browser: decode session")
	}
	if len(s.Cookies) == 0 {
		return nil, ErrNoSession
	}
	return &s, nil
}

// SaveSession writes the session atomically with owner-only permissions:
// the file holds live credentials.
func SaveSession(path string, s *Session) error {
	if s.Origins == nil {
		s.Origins = []json.RawMessage{}
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "browser: encode session")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "browser: create session dir")
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return errors.Wrap(err, "browser: create temp session")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrap(err, "browser: write session")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "browser: chmod session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "browser: close session")
	}
	return errors.Wrap(os.Rename(tmpName, path), "browser: replace session")
}

// Params converts the stored cookies for Network.setCookies.
func (s *Session) Params() []*network.CookieParam {
	out := make([]*network.CookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			t := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &t
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			p.SameSite = network.CookieSameSiteStrict
		case "lax":
			p.SameSite = network.CookieSameSiteLax
		case "none":
			p.SameSite = network.CookieSameSiteNone
		}
		out = append(out, p)
	}
	return out
}

// SessionFromCookies builds a session from cookies read out of the browser.
func SessionFromCookies(cookies []*network.Cookie) *Session {
	s := &Session{Cookies: make([]Cookie, 0, len(cookies)), Origins: []json.RawMessage{}}
	for _, c := range cookies {
		expires := c.Expires
		if c.Session {
			expires = -1
		}
		s.Cookies = append(s.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return s
}
