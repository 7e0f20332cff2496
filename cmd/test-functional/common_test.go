//go:build functional

package test_functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
)

const password = "111111111111"

// signUp registers a fresh user through the emulator and returns its email.
func signUp(ctx context.Context, t *testing.T) string {
	email := uuid.New().String() + "@test.com"
	resp, err := resty.New().
		R().
		SetContext(ctx).
		SetHeader("apikey", AnonKey).
		SetBody(map[string]string{"email": email, "password": password}).
		Post(EmulatorURL + "/auth/v1/signup")
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	return email
}

// newClient keeps cookies between calls and asks for JSON responses.
func newClient(ctx context.Context) *resty.Client {
	return resty.New().
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetContext(ctx)
			return nil
		})
}

func appURL(path string) string {
	u := AppBaseURL
	u.Path = path
	return u.String()
}

func TestSignIn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	email := signUp(ctx, t)

	t.Run("invalid credentials", func(t *testing.T) {
		resp, err := newClient(ctx).
			R().
			SetFormData(map[string]string{"email": email, "password": "wrong"}).
			SetResult(&models.SignInResp{}).
			SetError(&models.SignInResp{}).
			Post(appURL("/sign-in"))
		assert.Nil(t, err)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
		got, ok := resp.Error().(*models.SignInResp)
		assert.True(t, ok)
		assert.True(t, got.InvalidCredentials)
		assert.Empty(t, resp.Cookies())
	})

	t.Run("bad body", func(t *testing.T) {
		resp, err := newClient(ctx).
			R().
			SetFormData(map[string]string{"something": "???"}).
			SetError(&models.SignInResp{}).
			Post(appURL("/sign-in"))
		assert.Nil(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		got, ok := resp.Error().(*models.SignInResp)
		assert.True(t, ok)
		assert.Equal(t, []string{"Email is required."}, got.FieldErrors["email"])
	})

	t.Run("unauthorized", func(t *testing.T) {
		resp, err := newClient(ctx).R().Get(appURL("/user"))
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "/sign-in", resp.RawResponse.Request.URL.Path)
		assert.Equal(t, "true", resp.RawResponse.Request.URL.Query().Get("unauthorized"))
	})
}

func TestLinkGroupLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	email := signUp(ctx, t)
	cl := newClient(ctx)

	resp, err := cl.R().
		SetFormData(map[string]string{"email": email, "password": password}).
		SetResult(&models.UserResp{}).
		Post(appURL("/sign-in"))
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	user, ok := resp.Result().(*models.UserResp)
	require.True(t, ok)
	assert.Equal(t, email, user.Email)

	resp, err = cl.R().
		SetFormData(map[string]string{"link-group": "travel"}).
		SetResult(&models.LinkGroupDetailResp{}).
		Post(appURL("/create-link-group"))
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "/user/links/travel", resp.RawResponse.Request.URL.Path)
	detail, ok := resp.Result().(*models.LinkGroupDetailResp)
	require.True(t, ok)
	require.Len(t, detail.Links, 1)
	assert.Equal(t, "https://your-link.com", detail.Links[0].Link)
	assert.Equal(t, "basic", detail.Template)

	resp, err = cl.R().
		SetFormDataFromValues(map[string][]string{
			"link":     {"https://a.com", "https://b.com"},
			"template": {"punk"},
		}).
		SetResult(&models.SaveLinkGroupResp{}).
		Post(appURL("/user/links/travel"))
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	saved, ok := resp.Result().(*models.SaveLinkGroupResp)
	require.True(t, ok)
	assert.True(t, saved.Success)
	assert.Len(t, saved.Links, 2)

	resp, err = newClient(ctx).R().
		SetResult(&models.LinkGroupDetailResp{}).
		Get(appURL("/public/" + email + "/travel"))
	require.Nil(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	public, ok := resp.Result().(*models.LinkGroupDetailResp)
	require.True(t, ok)
	assert.Equal(t, "punk", public.Template)

	resp, err = cl.R().
		SetFormData(map[string]string{"link-group": "travel"}).
		Post(appURL("/delete-link-group"))
	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{}`, resp.String())

	resp, err = cl.R().Post(appURL("/sign-out"))
	require.Nil(t, err)
	assert.Equal(t, "/sign-in", resp.RawResponse.Request.URL.Path)

	resp, err = cl.R().Get(appURL("/user/links"))
	require.Nil(t, err)
	assert.Equal(t, "/sign-in", resp.RawResponse.Request.URL.Path)
}
