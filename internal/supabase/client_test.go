package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/emulator/emulatortest"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
)

func newFactory(emu *emulatortest.Emulator) *Factory {
	return NewFactory(emu.Config(), zap.NewNop().Sugar())
}

// requestWith replays the Set-Cookie headers of a previous response.
func requestWith(headers http.Header) *http.Request {
	rec := httptest.NewRecorder()
	for _, v := range headers.Values("Set-Cookie") {
		rec.Header().Add("Set-Cookie", v)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			r.AddCookie(c)
		}
	}
	return r
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "sb-abcd-auth-token", StorageKey("https://abcd.supabase.co"))
	assert.Equal(t, "sb-127-auth-token", StorageKey("http://127.0.0.1:54321"))
	assert.Equal(t, "sb-local-auth-token", StorageKey("::"))
}

func TestCookieStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		headers := http.Header{}
		s := newCookieStore("sb-x-auth-token", false, nil, headers)
		require.NoError(t, s.save(&Session{AccessToken: "token", RefreshToken: "refresh"}))

		got, err := newCookieStore("sb-x-auth-token", false, requestWith(headers), http.Header{}).load()
		require.NoError(t, err)
		assert.Equal(t, "token", got.AccessToken)
		assert.Equal(t, "refresh", got.RefreshToken)
	})

	t.Run("chunked", func(t *testing.T) {
		headers := http.Header{}
		s := newCookieStore("sb-x-auth-token", false, nil, headers)
		long := strings.Repeat("a", 5000)
		require.NoError(t, s.save(&Session{AccessToken: long}))

		cookies := headers.Values("Set-Cookie")
		require.Len(t, cookies, 3)
		assert.True(t, strings.HasPrefix(cookies[0], "sb-x-auth-token.0="))
		assert.True(t, strings.HasPrefix(cookies[1], "sb-x-auth-token.1="))
		assert.True(t, strings.HasPrefix(cookies[2], "sb-x-auth-token.2="))

		got, err := newCookieStore("sb-x-auth-token", false, requestWith(headers), http.Header{}).load()
		require.NoError(t, err)
		assert.Equal(t, long, got.AccessToken)
	})

	t.Run("shrinking expires stale chunks", func(t *testing.T) {
		headers := http.Header{}
		require.NoError(t, newCookieStore("sb-x-auth-token", false, nil, headers).save(&Session{AccessToken: strings.Repeat("a", 5000)}))

		next := http.Header{}
		s := newCookieStore("sb-x-auth-token", false, requestWith(headers), next)
		require.NoError(t, s.save(&Session{AccessToken: "short"}))

		got, err := newCookieStore("sb-x-auth-token", false, requestWith(next), http.Header{}).load()
		require.NoError(t, err)
		assert.Equal(t, "short", got.AccessToken)
		assert.Len(t, next.Values("Set-Cookie"), 4)
	})

	t.Run("missing", func(t *testing.T) {
		got, err := newCookieStore("sb-x-auth-token", false, httptest.NewRequest(http.MethodGet, "/", nil), http.Header{}).load()
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "sb-x-auth-token", Value: "base64-!!!"})
		_, err := newCookieStore("sb-x-auth-token", false, r, http.Header{}).load()
		assert.Error(t, err)
	})
}

func TestClientAuth(t *testing.T) {
	emu := emulatortest.New(t)
	emu.MustRegister(t, "a@b.com", "secret")
	f := newFactory(emu)
	ctx := context.Background()

	t.Run("invalid credentials", func(t *testing.T) {
		cl, headers := f.NewServerClient(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
		err := cl.SignInWithPassword(ctx, "a@b.com", "x")
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeInvalidCredentials))
		assert.Empty(t, headers.Values("Set-Cookie"))
	})

	t.Run("no session", func(t *testing.T) {
		cl, _ := f.NewServerClient(httptest.NewRequest(http.MethodGet, "/user", nil))
		user, err := cl.GetUser(ctx)
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("sign in, get user, sign out", func(t *testing.T) {
		cl, headers := f.NewServerClient(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
		require.NoError(t, cl.SignInWithPassword(ctx, "a@b.com", "secret"))
		require.NotEmpty(t, headers.Values("Set-Cookie"))

		cl, _ = f.NewServerClient(requestWith(headers))
		user, err := cl.GetUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "a@b.com", user.Email)

		cl, out := f.NewServerClient(requestWith(headers))
		require.NoError(t, cl.SignOut(ctx))
		require.NotEmpty(t, out.Values("Set-Cookie"))
		assert.Contains(t, out.Get("Set-Cookie"), "Max-Age=0")

		// the old cookie no longer authenticates
		cl, _ = f.NewServerClient(requestWith(headers))
		user, err = cl.GetUser(ctx)
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("refresh near expiry", func(t *testing.T) {
		cl, headers := f.NewServerClient(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
		require.NoError(t, cl.SignInWithPassword(ctx, "a@b.com", "secret"))
		before, err := cl.GetSession(ctx)
		require.NoError(t, err)

		cl, out := f.NewServerClient(requestWith(headers))
		cl.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		after, err := cl.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, after)
		assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
		assert.NotEmpty(t, out.Values("Set-Cookie"))

		user, err := cl.GetUser(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
	})

	t.Run("malformed cookie is dropped", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: StorageKey(emu.URL), Value: "garbage"})
		cl, out := f.NewServerClient(r)
		session, err := cl.GetSession(ctx)
		assert.NoError(t, err)
		assert.Nil(t, session)
		assert.Contains(t, out.Get("Set-Cookie"), "Max-Age=0")
	})
}

func TestQueryBuilder(t *testing.T) {
	emu := emulatortest.New(t)
	emu.MustRegister(t, "a@b.com", "secret")
	f := newFactory(emu)
	ctx := context.Background()

	cl, headers := f.NewServerClient(httptest.NewRequest(http.MethodPost, "/sign-in", nil))
	require.NoError(t, cl.SignInWithPassword(ctx, "a@b.com", "secret"))
	cl, _ = f.NewServerClient(requestWith(headers))

	inserted := make([]models.Link, 0)
	err := cl.From(models.TableLinks).Insert([]models.Link{
		{UserEmail: "a@b.com", LinkGroup: "travel", Link: "https://a.com"},
		{UserEmail: "a@b.com", LinkGroup: "music", Link: "https://m.com"},
	}).Execute(ctx, &inserted)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.NotZero(t, inserted[0].ID)

	links := make([]models.Link, 0)
	err = cl.From(models.TableLinks).
		Select("id", "link").
		Eq("user_email", "a@b.com").
		Eq("link_group", "travel").
		Order("id", true).
		Execute(ctx, &links)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://a.com", links[0].Link)

	users := make([]models.User, 0)
	err = cl.From(models.TableUsers).
		Update(map[string]string{"first_name": "Ada"}).
		Eq("email", "a@b.com").
		Execute(ctx, &users)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].First())

	require.NoError(t, cl.From(models.TableLinks).Delete().Eq("link_group", "music").Execute(ctx, nil))
	assert.Len(t, emu.Links(t), 1)

	emu.SetFault(models.TableLinks, http.StatusInternalServerError)
	defer emu.SetFault(models.TableLinks, 0)
	err = cl.From(models.TableLinks).Select("id").Execute(ctx, &links)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, statusOf(err))
}
