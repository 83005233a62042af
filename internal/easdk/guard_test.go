package easdk

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedirectURL(t *testing.T) {
	testCases := []struct {
		name       string
		apiKey     string
		shopOrigin string
		location   string
		want       string
	}{
		{name: "path and query", apiKey: "abc", shopOrigin: "https://shop.example.com", location: "https://app.test/install?x=1", want: "https://shop.example.com/admin/apps/abc/install?x=1"},
		{name: "no query", apiKey: "abc", shopOrigin: "https://shop.example.com", location: "https://app.test/", want: "https://shop.example.com/admin/apps/abc/"},
		{name: "no api key", shopOrigin: "https://shop.example.com", location: "https://app.test/install?x=1", want: "https://shop.example.com/admin/apps/"},
		{name: "default shop origin", apiKey: "abc", location: "https://app.test/a", want: "https://myshopify.com/admin/apps/abc/a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RedirectURL(tc.apiKey, tc.shopOrigin, mustURL(t, tc.location)))
		})
	}
}

func TestGuardWarnsWhenNotEmbedded(t *testing.T) {
	var buf bytes.Buffer
	env := &fakeEnv{topLevel: true, location: mustURL(t, "https://app.example.com/install?x=1")}

	e := New(env, Options{APIKey: "abc", ShopOrigin: "https://shop.example.com", Logger: log.New(&buf, "", 0)}, nil)

	require.Empty(t, env.assigned)
	require.False(t, e.Redirected())
	require.Contains(t, buf.String(), "https://shop.example.com/admin/apps/abc/install?x=1")
	require.Len(t, env.posts, 1)
}

func TestGuardForcesRedirect(t *testing.T) {
	env := &fakeEnv{topLevel: true, location: mustURL(t, "https://app.example.com/install?x=1")}

	e := New(env, Options{APIKey: "abc", ShopOrigin: "https://shop.example.com", ForceRedirect: true, Logger: log.New(&bytes.Buffer{}, "", 0)}, nil)

	require.Equal(t, []string{"https://shop.example.com/admin/apps/abc/install?x=1"}, env.assigned)
	require.True(t, e.Redirected())
	require.Empty(t, env.posts)

	e.StartLoading()
	require.Empty(t, env.posts)
}

func TestGuardSilentWhenEmbedded(t *testing.T) {
	var buf bytes.Buffer
	env := &fakeEnv{location: mustURL(t, "https://app.example.com/install")}

	New(env, Options{APIKey: "abc", ShopOrigin: "https://shop.example.com", ForceRedirect: true, Logger: log.New(&buf, "", 0)}, nil)

	require.Empty(t, env.assigned)
	require.NotContains(t, buf.String(), "frame redirect")
}
