package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRootURL_Canonicalizes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://Example.COM":              "https://example.com",
		"https://example.com/":             "https://example.com",
		"https://example.com:443/docs/":    "https://example.com/docs",
		"http://example.com:80":            "http://example.com",
		"https://example.com/a#section":    "https://example.com/a",
		"HTTPS://example.com/b?z=1&a=2":    "https://example.com/b?a=2&z=1",
		"  https://example.com/trim  ":     "https://example.com/trim",
		"https://example.com:8443/":        "https://example.com:8443",
		"http://example.com/path///":       "http://example.com/path",
	}
	for input, want := range cases {
		got, err := NormalizeRootURL(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
}

func TestNormalizeRootURL_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://Example.com:443/Docs/?b=2&a=1#frag",
		"http://host.example/",
		"https://example.com/deep/path/",
	}
	for _, input := range inputs {
		once, err := NormalizeRootURL(input)
		require.NoError(t, err)
		twice, err := NormalizeRootURL(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	}
}

func TestNormalizeRootURL_RejectsInvalid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"example.com",
		"ftp://example.com",
		"https://",
		"javascript:alert(1)",
		"https://" + strings.Repeat("a", maxURLLength),
	}
	for _, input := range inputs {
		_, err := NormalizeRootURL(input)
		require.ErrorIs(t, err, ErrInvalidInput, input)
	}
}

func TestNormalizeLink_ResolvesRelative(t *testing.T) {
	t.Parallel()

	got, err := NormalizeLink("/pricing/", "https://example.com/docs")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/pricing", got)

	got, err = NormalizeLink("../about", "https://example.com/docs/intro")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/about", got)

	_, err = NormalizeLink("mailto:hi@example.com", "https://example.com")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSameSite(t *testing.T) {
	t.Parallel()

	origin := Origin("https://example.com/docs")
	require.Equal(t, "https://example.com", origin)
	require.True(t, SameSite("https://example.com/pricing", origin))
	require.False(t, SameSite("https://other.example/pricing", origin))
	require.False(t, SameSite("http://example.com/pricing", origin))
	require.False(t, SameSite("https://example.com", ""))
}
