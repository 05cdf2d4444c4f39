package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/models"
	"kinship/internal/testutil"
	"kinship/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Aa1!aaaa"

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		DBDriver:          "sqlite",
		SessionCookieName: "kinship_session",
		SessionTTLMinutes: 60,
		BcryptCost:        bcrypt.MinCost,
		DemoUsername:      "demo",
		DemoPassword:      "Demo1234!",
	}
}

func setupTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	s, err := NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), nil)
	require.NoError(t, err)
	return s
}

// setupTestServerWithRedis backs sessions and the user cache with miniredis.
func setupTestServerWithRedis(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	s, err := NewServerWithDeps(testConfig(), testutil.NewSQLiteDB(t), rdb)
	require.NoError(t, err)
	return s, mr
}

// client is a minimal browser: it replays cookies between requests and never
// follows redirects.
type client struct {
	t       *testing.T
	s       *Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, s: s, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *http.Response {
	cl.t.Helper()
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	resp, err := cl.s.App().Test(req, -1)
	require.NoError(cl.t, err)
	cl.t.Cleanup(func() { _ = resp.Body.Close() })

	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck
	}
	return resp
}

func (cl *client) get(path string) *http.Response {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) signUp(username, password string) *http.Response {
	return cl.postForm("/users/sign-up", url.Values{
		"username":        {username},
		"password":        {password},
		"confirmPassword": {password},
	})
}

func (cl *client) login(username, password string) *http.Response {
	return cl.postForm("/users/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

func (cl *client) hasSession() bool {
	_, ok := cl.cookies[cl.s.config.SessionCookieName]
	return ok
}

func decodePage(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var page map[string]any
	require.NoError(t, json.Unmarshal(body, &page), string(body))
	return page
}

func pageErrors(t *testing.T, page map[string]any) []string {
	t.Helper()
	raw, _ := page["errors"].([]any)
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.(string))
	}
	return out
}

func countRows(t *testing.T, s *Server, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func seedUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	cl := newClient(t, s)
	resp := cl.signUp(username, strongPassword)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	var u models.User
	require.NoError(t, s.db.Where("username = ?", username).First(&u).Error)
	return &u
}

func seedPost(t *testing.T, s *Server, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{Header: "hello", Content: "world", UserID: author.ID}
	require.NoError(t, s.db.Create(p).Error)
	return p
}

func TestHealthEndpoints(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	resp := cl.get("/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = cl.get("/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodePage(t, resp)
	checks := page["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
	assert.Empty(t, page["feature_flags"])
}

func TestSecurityHeadersAndUnknownRoute(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	resp := cl.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp = cl.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	cl.get("/health/live")
	resp := cl.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForms(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	page := decodePage(t, cl.get("/users/sign-up"))
	assert.Equal(t, "sign-up", page["view"])
	assert.Equal(t, "Sign-up", page["title"])

	page = decodePage(t, cl.get("/users/login"))
	assert.Equal(t, "login", page["view"])
	assert.Equal(t, "Login", page["title"])
}

func TestSignUp(t *testing.T) {
	t.Run("creates user and starts session", func(t *testing.T) {
		s := setupTestServer(t)
		cl := newClient(t, s)

		resp := cl.signUp("abc", strongPassword)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/users/my-profile", resp.Header.Get("Location"))
		assert.True(t, cl.hasSession())

		var u models.User
		require.NoError(t, s.db.Where("username = ?", "abc").First(&u).Error)
		assert.NotEqual(t, strongPassword, u.HashedPassword)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(strongPassword)))

		page := decodePage(t, cl.get("/users/my-profile"))
		assert.Equal(t, "profile", page["view"])
		assert.Equal(t, "Profile Page", page["title"])
		assert.Equal(t, true, page["is_self"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		s := setupTestServer(t)
		seedUser(t, s, "abc")

		cl := newClient(t, s)
		resp := cl.signUp("abc", strongPassword)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Contains(t, pageErrors(t, page), validation.MsgUsernameTaken)
		assert.False(t, cl.hasSession())
		assert.Equal(t, int64(1), countRows(t, s, &models.User{}))
	})

	t.Run("rejects weak password and mismatch", func(t *testing.T) {
		s := setupTestServer(t)
		cl := newClient(t, s)

		resp := cl.postForm("/users/sign-up", url.Values{
			"username":        {"abc"},
			"password":        {"password"},
			"confirmPassword": {"different"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		errs := pageErrors(t, page)
		assert.Len(t, errs, 2)
		assert.Equal(t, "abc", page["user"].(map[string]any)["username"])
		assert.NotContains(t, page, "password")
		assert.Equal(t, int64(0), countRows(t, s, &models.User{}))
	})

	t.Run("reports every missing field", func(t *testing.T) {
		s := setupTestServer(t)
		cl := newClient(t, s)

		page := decodePage(t, cl.postForm("/users/sign-up", url.Values{}))
		errs := pageErrors(t, page)
		assert.Contains(t, errs, validation.MsgUsernameRequired)
		assert.Contains(t, errs, validation.MsgPasswordRequired)
		assert.Contains(t, errs, validation.MsgConfirmPasswordRequired)
	})
}

func TestLogin(t *testing.T) {
	s := setupTestServer(t)
	seedUser(t, s, "abc")

	t.Run("success", func(t *testing.T) {
		cl := newClient(t, s)
		resp := cl.login("abc", strongPassword)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/posts/feed", resp.Header.Get("Location"))

		resp = cl.get("/posts/feed")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, "feed", page["view"])
		assert.Equal(t, "abc Feed", page["title"])
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		cl := newClient(t, s)
		wrong := decodePage(t, cl.login("abc", "Wrong123!"))
		assert.False(t, cl.hasSession())

		cl = newClient(t, s)
		unknown := decodePage(t, cl.login("nobody", strongPassword))
		assert.False(t, cl.hasSession())

		assert.Equal(t, pageErrors(t, wrong), pageErrors(t, unknown))
		assert.Equal(t, []string{validation.MsgLoginFailed}, pageErrors(t, wrong))
		assert.Equal(t, "abc", wrong["username"])
	})

	t.Run("missing fields", func(t *testing.T) {
		cl := newClient(t, s)
		page := decodePage(t, cl.login("", ""))
		assert.Len(t, pageErrors(t, page), 2)
	})
}

func TestLogout(t *testing.T) {
	s := setupTestServer(t)
	seedUser(t, s, "abc")

	cl := newClient(t, s)
	cl.login("abc", strongPassword)
	require.True(t, cl.hasSession())
	stale := *cl.cookies[s.config.SessionCookieName]

	resp := cl.get("/users/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/login", resp.Header.Get("Location"))
	assert.False(t, cl.hasSession())

	// The old session ID no longer authenticates.
	cl.cookies[stale.Name] = &stale
	resp = cl.get("/posts/feed")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/login", resp.Header.Get("Location"))
}

func TestGatedRoutesRedirectToLogin(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	for _, path := range []string{
		"/posts/feed",
		"/posts/create-post",
		"/posts/comments",
		"/users/my-profile",
		"/users/follow/1",
	} {
		resp := cl.get(path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/users/login", resp.Header.Get("Location"), path)
	}

	resp := cl.postForm("/posts/create-post", url.Values{"header": {"h"}, "content": {"c"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, int64(0), countRows(t, s, &models.Post{}))
}

func TestCreatePostAndFeed(t *testing.T) {
	s := setupTestServer(t)
	seedUser(t, s, "abc")
	cl := newClient(t, s)
	cl.login("abc", strongPassword)

	page := decodePage(t, cl.get("/posts/create-post"))
	assert.Equal(t, "Create New Post", page["title"])

	resp := cl.postForm("/posts/create-post", url.Values{"header": {"First"}, "content": {"Body"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodePage(t, resp)
	assert.Equal(t, "post", page["view"])
	assert.Equal(t, "First", page["post"].(map[string]any)["header"])

	resp = cl.postForm("/posts/create-post", url.Values{"header": {""}, "content": {"Body"}})
	page = decodePage(t, resp)
	assert.Equal(t, []string{validation.MsgHeaderRequired}, pageErrors(t, page))
	assert.Equal(t, int64(1), countRows(t, s, &models.Post{}))

	page = decodePage(t, cl.get("/posts/feed"))
	posts := page["all_posts"].([]any)
	require.Len(t, posts, 1)
	first := posts[0].(map[string]any)
	assert.Equal(t, "First", first["header"])
	assert.Equal(t, "abc", first["user"].(map[string]any)["username"])
}

func TestCreateComment(t *testing.T) {
	s := setupTestServer(t)
	author := seedUser(t, s, "abc")
	post := seedPost(t, s, author)

	cl := newClient(t, s)
	cl.login("abc", strongPassword)
	postID := itoa(post.ID)

	page := decodePage(t, cl.get("/posts/comments?postId="+postID))
	assert.Equal(t, "user-comment", page["title"])
	assert.Equal(t, postID, page["comment"].(map[string]any)["postId"])
	assert.Empty(t, page["comments"])

	t.Run("accepts 255 characters", func(t *testing.T) {
		resp := cl.postForm("/posts/comments", url.Values{
			"content": {strings.Repeat("a", 255)},
			"postId":  {postID},
			"userId":  {"999"},
		})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		var c models.Comment
		require.NoError(t, s.db.First(&c).Error)
		assert.Equal(t, author.ID, c.UserID)
		assert.Equal(t, post.ID, c.PostID)

		page := decodePage(t, cl.get("/posts/comments?postId="+postID))
		assert.Len(t, page["comments"], 1)
	})

	t.Run("rejects 256 characters", func(t *testing.T) {
		resp := cl.postForm("/posts/comments", url.Values{
			"content": {strings.Repeat("a", 256)},
			"postId":  {postID},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, []string{validation.MsgCommentTooLong}, pageErrors(t, page))
		assert.Equal(t, int64(1), countRows(t, s, &models.Comment{}))
	})

	t.Run("unknown post", func(t *testing.T) {
		resp := cl.postForm("/posts/comments", url.Values{
			"content": {"hi"},
			"postId":  {"9999"},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int64(1), countRows(t, s, &models.Comment{}))
	})
}

func TestFollowUser(t *testing.T) {
	s := setupTestServer(t)
	abc := seedUser(t, s, "abc")
	other := seedUser(t, s, "other")

	cl := newClient(t, s)
	cl.login("abc", strongPassword)

	t.Run("self", func(t *testing.T) {
		resp := cl.get("/users/follow/" + itoa(abc.ID))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int64(0), countRows(t, s, &models.Follow{}))
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := cl.get("/users/follow/9999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("success then duplicate", func(t *testing.T) {
		resp := cl.get("/users/follow/" + itoa(other.ID))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decodePage(t, resp)
		f := body["follow"].(map[string]any)
		assert.EqualValues(t, abc.ID, f["follow_belongs_to_user_id"])
		assert.EqualValues(t, other.ID, f["follower_user_id"])

		resp = cl.get("/users/follow/" + itoa(other.ID))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, int64(1), countRows(t, s, &models.Follow{}))
	})

	t.Run("profile reflects the edge", func(t *testing.T) {
		page := decodePage(t, cl.get("/users/profile/"+itoa(other.ID)))
		assert.Equal(t, true, page["is_following"])
		assert.Equal(t, false, page["is_self"])
		assert.Equal(t, "other", page["viewing_user"].(map[string]any)["username"])
	})
}

func TestUserProfile_NotFound(t *testing.T) {
	s := setupTestServer(t)
	cl := newClient(t, s)

	resp := cl.get("/users/profile/9999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMyProfile_DeletedUserClearsSession(t *testing.T) {
	s := setupTestServer(t)
	u := seedUser(t, s, "abc")
	cl := newClient(t, s)
	cl.login("abc", strongPassword)

	require.NoError(t, s.db.Delete(&models.User{}, u.ID).Error)

	resp := cl.get("/users/my-profile")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/login", resp.Header.Get("Location"))
	assert.False(t, cl.hasSession())
}

func TestMyProfile_DeletedUserClearsSession_WithUserCache(t *testing.T) {
	s, mr := setupTestServerWithRedis(t)
	u := seedUser(t, s, "abc")
	cl := newClient(t, s)
	cl.login("abc", strongPassword)

	resp := cl.get("/users/my-profile")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, mr.Exists(cache.UserKey(u.ID)))

	require.NoError(t, s.db.Unscoped().Delete(&models.User{}, u.ID).Error)

	resp = cl.get("/users/my-profile")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/login", resp.Header.Get("Location"))
	assert.False(t, cl.hasSession())
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))
}

func TestDemoLogin(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := setupTestServer(t)
		resp := newClient(t, s).get("/users/demo")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("enabled", func(t *testing.T) {
		s := setupTestServer(t, func(c *config.Config) { c.DemoEnabled = true })
		cl := newClient(t, s)

		resp := cl.get("/users/demo")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.True(t, cl.hasSession())

		// A second visit reuses the same account.
		newClient(t, s).get("/users/demo")
		assert.Equal(t, int64(1), countRows(t, s, &models.User{}))

		page := decodePage(t, cl.get("/"))
		assert.Equal(t, "demo", page["user"].(map[string]any)["username"])
		assert.Empty(t, page["features"])
	})

	t.Run("enabled by feature flag", func(t *testing.T) {
		s := setupTestServer(t, func(c *config.Config) { c.FeatureFlags = "demo_login=true" })
		cl := newClient(t, s)
		resp := cl.get("/users/demo")
		assert.Equal(t, http.StatusFound, resp.StatusCode)

		page := decodePage(t, cl.get("/"))
		assert.Equal(t, map[string]any{"demo_login": true}, page["features"])
	})
}

func TestCSRF(t *testing.T) {
	s := setupTestServer(t, func(c *config.Config) { c.CSRFEnabled = true })
	cl := newClient(t, s)

	resp := cl.postForm("/users/login", url.Values{"username": {"abc"}, "password": {strongPassword}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	page := decodePage(t, cl.get("/users/login"))
	token, _ := page["csrf_token"].(string)
	require.NotEmpty(t, token)

	resp = cl.postForm("/users/login", url.Values{
		"username": {"abc"},
		"password": {strongPassword},
		"_csrf":    {token},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
