package cookies_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_NoJarIsSafe(t *testing.T) {
	jar := cookies.FromContext(context.Background())
	_, ok := jar.Get("access_token")
	require.False(t, ok)

	jar.Set("access_token", "abc", cookies.Attributes{})
	jar.Delete("access_token")
	_, ok = jar.Get("access_token")
	require.False(t, ok)
}

func TestFromContext_ReturnsAttachedJar(t *testing.T) {
	mem := cookies.NewMemoryJar()
	ctx := cookies.WithJar(context.Background(), mem)

	cookies.FromContext(ctx).Set("logged_in", "true", cookies.Attributes{Path: "/"})
	v, ok := mem.Get("logged_in")
	require.True(t, ok)
	require.Equal(t, "true", v)
}

func TestMemoryJar_MaxAgeExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cookies.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { cookies.NowTimeFunc = time.Now })

	jar := cookies.NewMemoryJar()
	jar.Set("access_token", "abc", cookies.Attributes{MaxAge: 60})

	v, ok := jar.Get("access_token")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	now = now.Add(61 * time.Second)
	_, ok = jar.Get("access_token")
	require.False(t, ok)
}

func TestMemoryJar_SetExpiredDeletes(t *testing.T) {
	jar := cookies.NewMemoryJar()
	jar.Set("refresh_token", "def", cookies.Attributes{})
	jar.Set("refresh_token", "", cookies.Attributes{MaxAge: -1})

	_, ok := jar.Get("refresh_token")
	require.False(t, ok)
}

func TestMemoryJar_ExpiredReadKeepsConcurrentSet(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cookies.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { cookies.NowTimeFunc = time.Now })

	jar := cookies.NewMemoryJar()
	for range 200 {
		jar.Set("access_token", "old", cookies.Attributes{MaxAge: 1})
		now = now.Add(2 * time.Second)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			jar.Get("access_token")
		}()
		go func() {
			defer wg.Done()
			jar.Set("access_token", "fresh", cookies.Attributes{MaxAge: 3600})
		}()
		wg.Wait()

		v, ok := jar.Get("access_token")
		require.True(t, ok)
		require.Equal(t, "fresh", v)
	}
}

func TestRequestJar_ReadsRequestAndOverlaysWrites(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "old"})
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "r1"})
	w := httptest.NewRecorder()

	jar := cookies.NewRequestJar(w, r)
	v, ok := jar.Get("access_token")
	require.True(t, ok)
	require.Equal(t, "old", v)

	jar.Set("access_token", "new", cookies.Attributes{Path: "/", HttpOnly: true, Secure: true})
	jar.Delete("refresh_token")

	v, ok = jar.Get("access_token")
	require.True(t, ok)
	require.Equal(t, "new", v)
	_, ok = jar.Get("refresh_token")
	require.False(t, ok)

	written := w.Result().Cookies()
	require.Len(t, written, 2)
	assert.Equal(t, "access_token", written[0].Name)
	assert.True(t, written[0].HttpOnly)
	assert.True(t, written[0].Secure)
	assert.Equal(t, "refresh_token", written[1].Name)
	assert.Equal(t, -1, written[1].MaxAge)
}

func TestSetRaw_PreservesAttributes(t *testing.T) {
	jar := cookies.NewMemoryJar()
	err := cookies.SetRaw(jar, "access_token=abc; Path=/; HttpOnly; Secure; SameSite=Strict; Domain=example.com")
	require.NoError(t, err)

	v, ok := jar.Get("access_token")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	attrs, ok := jar.Attributes("access_token")
	require.True(t, ok)
	assert.True(t, attrs.HttpOnly)
	assert.True(t, attrs.Secure)
	assert.Equal(t, http.SameSiteStrictMode, attrs.SameSite)
	assert.Equal(t, "example.com", attrs.Domain)
}

func TestSetRaw_ExpiredCookieDeletes(t *testing.T) {
	jar := cookies.NewMemoryJar()
	jar.Set("logged_in", "true", cookies.Attributes{})

	require.NoError(t, cookies.SetRaw(jar, "logged_in=; Path=/; Max-Age=0"))
	_, ok := jar.Get("logged_in")
	require.False(t, ok)
}

func TestSetRaw_Malformed(t *testing.T) {
	require.Error(t, cookies.SetRaw(cookies.NewMemoryJar(), "no-equals-sign"))
}

func TestMergeHeader(t *testing.T) {
	updates := cookies.Pairs([]string{
		"access_token=new-a; Path=/; HttpOnly",
		"refresh_token=new-r; Path=/; HttpOnly",
		"garbage",
	})
	require.Len(t, updates, 2)

	merged := cookies.MergeHeader("access_token=old-a; refresh_token=old-r; theme=dark", updates)
	require.Equal(t, "access_token=new-a; refresh_token=new-r; theme=dark", merged)

	require.Equal(t, "access_token=new-a; refresh_token=new-r", cookies.MergeHeader("", updates))
}
