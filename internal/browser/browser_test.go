package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthLabel(t *testing.T) {
	tests := []struct {
		label string
		month time.Month
		year  int
	}{
		{"janvier 2026", time.January, 2026},
		{"février 2026", time.February, 2026},
		{"Février 2026", time.February, 2026},
		{"fevrier 2026", time.February, 2026},
		{"  AOÛT 2025 ", time.August, 2025},
		{"Décembre, 2024", time.December, 2024},
		{"mai 2026", time.May, 2026},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			m, y, err := ParseMonthLabel(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.month, m)
			assert.Equal(t, tt.year, y)
		})
	}

	for _, bad := range []string{"", "texte invalide", "février", "2026", "maison 2026"} {
		_, _, err := ParseMonthLabel(bad)
		assert.ErrorIs(t, err, ErrMonthLabel, bad)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	in := &Session{Cookies: []Cookie{
		{Name: "SID", Value: "abc", Domain: ".example.org", Path: "/", Expires: 1767225600.5, HTTPOnly: true, Secure: true, SameSite: "Lax"},
		{Name: "pref", Value: "fr", Domain: "app.example.org", Path: "/", Expires: -1},
	}}
	require.NoError(t, SaveSession(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, in.Cookies, out.Cookies)
}

func TestLoadSessionErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSession(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"cookies":[],"origins":[]}`), 0o600))
	_, err = LoadSession(empty)
	assert.ErrorIs(t, err, ErrNoSession)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"cookies":`), 0o600))
	_, err = LoadSession(broken)
	assert.Error(t, err)
}

func TestSessionParams(t *testing.T) {
	s := &Session{Cookies: []Cookie{
		{Name: "SID", Value: "abc", Domain: ".example.org", Path: "/", Expires: 1767225600, HTTPOnly: true, Secure: true, SameSite: "Strict"},
		{Name: "tmp", Value: "1", Domain: "example.org", Path: "/", Expires: -1, SameSite: "None"},
	}}
	params := s.Params()
	require.Len(t, params, 2)

	assert.Equal(t, "SID", params[0].Name)
	assert.True(t, params[0].HTTPOnly)
	assert.Equal(t, network.CookieSameSiteStrict, params[0].SameSite)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1767225600), params[0].Expires.Time().Unix())

	assert.Nil(t, params[1].Expires)
	assert.Equal(t, network.CookieSameSiteNone, params[1].SameSite)
}

func TestSessionFromCookies(t *testing.T) {
	s := SessionFromCookies([]*network.Cookie{
		{Name: "SID", Value: "abc", Domain: ".example.org", Path: "/", Expires: 1767225600, HTTPOnly: true, SameSite: network.CookieSameSiteLax},
		{Name: "tmp", Value: "1", Domain: "example.org", Path: "/", Expires: 0, Session: true},
	})
	require.Len(t, s.Cookies, 2)
	assert.Equal(t, "Lax", s.Cookies[0].SameSite)
	assert.Equal(t, 1767225600.0, s.Cookies[0].Expires)
	assert.Equal(t, -1.0, s.Cookies[1].Expires)
	assert.NotNil(t, s.Origins)
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoURL)
}
