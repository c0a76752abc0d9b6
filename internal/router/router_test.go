package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"karmafeed/internal/config"
	"karmafeed/internal/db/dbtest"
	"karmafeed/internal/router"
	"karmafeed/internal/services"
	"karmafeed/internal/session"
	"karmafeed/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func setupTestRouter(t *testing.T, withTokens bool) *testAPI {
	gin.SetMode(gin.TestMode)

	gdb := dbtest.New(t)
	renderer, err := utils.NewRenderer(64)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	feed := config.FeedConfig{LeaderboardWindow: 24 * time.Hour, LeaderboardLimit: 5, PageSize: 30, HotCandidates: 200}
	svc := services.New(gdb, feed, zerolog.Nop(), services.UTCNow, renderer.Render)

	var tokens *session.TokenStore
	if withTokens {
		s := miniredis.RunT(t)
		tokens, err = session.NewTokenStore("redis://"+s.Addr(), time.Hour)
		if err != nil {
			t.Fatalf("NewTokenStore failed: %v", err)
		}
		t.Cleanup(func() { tokens.Close() })
	}

	r := router.NewRouter(router.Deps{
		DB:       gdb,
		Services: svc,
		Tokens:   tokens,
		Server:   config.ServerConfig{SessionSecret: "test-secret", CORSOrigin: "*"},
		Log:      zerolog.Nop(),
	})
	return &testAPI{t: t, router: r}
}

func (a *testAPI) do(method, path string, body interface{}, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type authResp struct {
	Token string `json:"token"`
	User  struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func (a *testAPI) register(name string) authResp {
	a.t.Helper()
	w := a.do("POST", "/api/auth/register", map[string]string{"username": name, "password": "password1"}, "")
	if w.Code != http.StatusCreated {
		a.t.Fatalf("register %s: status %d: %s", name, w.Code, w.Body.String())
	}
	var resp authResp
	decode(a.t, w, &resp)
	return resp
}

func (a *testAPI) createPost(token, content string) uint {
	a.t.Helper()
	w := a.do("POST", "/api/posts", map[string]string{"content": content}, token)
	if w.Code != http.StatusCreated {
		a.t.Fatalf("create post: status %d: %s", w.Code, w.Body.String())
	}
	var post struct {
		ID uint `json:"id"`
	}
	decode(a.t, w, &post)
	return post.ID
}

func (a *testAPI) createComment(token string, postID uint, content string, parentID *uint) *httptest.ResponseRecorder {
	a.t.Helper()
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	return a.do("POST", fmt.Sprintf("/api/posts/%d/comments", postID), body, token)
}

func TestHealthEndpoint(t *testing.T) {
	api := setupTestRouter(t, false)

	w := api.do("GET", "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "healthy" || response["service"] != "karmafeed" {
		t.Errorf("Unexpected health response: %v", response)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestWritesRequireAuth(t *testing.T) {
	api := setupTestRouter(t, true)

	cases := []struct{ method, path string }{
		{"POST", "/api/posts"},
		{"POST", "/api/posts/1/comments"},
		{"POST", "/api/posts/1/like"},
		{"DELETE", "/api/comments/1/like"},
	}
	for _, tc := range cases {
		w := api.do(tc.method, tc.path, map[string]string{"content": "x"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}

	w := api.do("POST", "/api/posts", map[string]string{"content": "x"}, "bogus-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown token, got %d", w.Code)
	}
}

func TestFeedFlow(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")
	bob := api.register("bob")
	carol := api.register("carol")

	postID := api.createPost(alice.Token, "hello **world**")

	w := api.createComment(bob.Token, postID, "first", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create comment: %d %s", w.Code, w.Body.String())
	}
	var root struct {
		ID     uint `json:"id"`
		Depth  int  `json:"depth"`
		Author struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"author"`
	}
	decode(t, w, &root)
	if root.Author.ID == 0 || root.Author.Username != "bob" {
		t.Errorf("Expected comment author bob, got %+v", root.Author)
	}

	w = api.createComment(alice.Token, postID, "reply", &root.ID)
	var reply struct {
		ID    uint `json:"id"`
		Depth int  `json:"depth"`
	}
	decode(t, w, &reply)
	if reply.Depth != 1 {
		t.Errorf("Expected depth 1, got %d", reply.Depth)
	}

	// Like the post twice.
	w = api.do("POST", fmt.Sprintf("/api/posts/%d/like", postID), nil, bob.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("like: %d %s", w.Code, w.Body.String())
	}
	var like struct {
		Status    string `json:"status"`
		LikeCount int    `json:"like_count"`
		Karma     int    `json:"karma_value"`
	}
	decode(t, w, &like)
	if like.Status != "liked" || like.LikeCount != 1 || like.Karma != 5 {
		t.Errorf("Unexpected like response: %+v", like)
	}

	w = api.do("POST", fmt.Sprintf("/api/posts/%d/like", postID), nil, bob.Token)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on double like, got %d", w.Code)
	}
	decode(t, w, &like)
	if like.Status != "already_liked" || like.LikeCount != 1 {
		t.Errorf("Unexpected already-liked response: %+v", like)
	}

	// carol likes bob's comment.
	w = api.do("POST", fmt.Sprintf("/api/comments/%d/like", root.ID), nil, carol.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("comment like: %d %s", w.Code, w.Body.String())
	}

	// Detail as bob.
	w = api.do("GET", fmt.Sprintf("/api/posts/%d", postID), nil, bob.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("detail: %d %s", w.Code, w.Body.String())
	}
	var detail struct {
		Post struct {
			LikeCount   int    `json:"like_count"`
			IsLiked     bool   `json:"is_liked"`
			ContentHTML string `json:"content_html"`
			Author      struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"post"`
		Comments []struct {
			ID        uint `json:"id"`
			LikeCount int  `json:"like_count"`
			IsLiked   bool `json:"is_liked"`
			Children  []struct {
				ID uint `json:"id"`
			} `json:"children"`
		} `json:"comments"`
	}
	decode(t, w, &detail)
	if detail.Post.LikeCount != 1 || !detail.Post.IsLiked || detail.Post.Author.Username != "alice" {
		t.Errorf("Unexpected post in detail: %+v", detail.Post)
	}
	if detail.Post.ContentHTML == "" {
		t.Error("Expected rendered content_html")
	}
	if len(detail.Comments) != 1 || detail.Comments[0].LikeCount != 1 || detail.Comments[0].IsLiked {
		t.Fatalf("Unexpected comments: %+v", detail.Comments)
	}
	if len(detail.Comments[0].Children) != 1 || detail.Comments[0].Children[0].ID != reply.ID {
		t.Errorf("Expected reply nested under root, got %+v", detail.Comments[0].Children)
	}

	// Leaderboard: alice 5 from the post, bob 1 from the comment.
	w = api.do("GET", "/api/leaderboard", nil, "")
	var board struct {
		Leaderboard []struct {
			UserID       uint   `json:"user_id"`
			Username     string `json:"username"`
			Karma24h     int    `json:"karma_24h"`
			PostLikes    int    `json:"post_likes"`
			CommentLikes int    `json:"comment_likes"`
		} `json:"leaderboard"`
	}
	decode(t, w, &board)
	if len(board.Leaderboard) != 2 {
		t.Fatalf("Expected 2 leaderboard entries, got %+v", board.Leaderboard)
	}
	if board.Leaderboard[0].Username != "alice" || board.Leaderboard[0].Karma24h != 5 || board.Leaderboard[0].PostLikes != 1 {
		t.Errorf("Unexpected first entry: %+v", board.Leaderboard[0])
	}
	if board.Leaderboard[1].Username != "bob" || board.Leaderboard[1].Karma24h != 1 || board.Leaderboard[1].CommentLikes != 1 {
		t.Errorf("Unexpected second entry: %+v", board.Leaderboard[1])
	}

	// Unlike, then unlike again.
	w = api.do("DELETE", fmt.Sprintf("/api/posts/%d/like", postID), nil, bob.Token)
	decode(t, w, &like)
	if w.Code != http.StatusOK || like.Status != "unliked" || like.LikeCount != 0 {
		t.Errorf("Unexpected unlike: %d %+v", w.Code, like)
	}
	w = api.do("DELETE", fmt.Sprintf("/api/posts/%d/like", postID), nil, bob.Token)
	decode(t, w, &like)
	if w.Code != http.StatusOK || like.Status != "not_liked" {
		t.Errorf("Unexpected second unlike: %d %+v", w.Code, like)
	}

	// Profile reflects the ledger.
	w = api.do("GET", fmt.Sprintf("/api/users/%d", bob.User.ID), nil, "")
	var profile struct {
		Karma    int `json:"karma"`
		Karma24h int `json:"karma_24h"`
	}
	decode(t, w, &profile)
	if profile.Karma != 1 || profile.Karma24h != 1 {
		t.Errorf("Unexpected profile: %+v", profile)
	}
}

func TestErrorMapping(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")
	p1 := api.createPost(alice.Token, "one")
	p2 := api.createPost(alice.Token, "two")

	w := api.createComment(alice.Token, p2, "elsewhere", nil)
	var other struct {
		ID uint `json:"id"`
	}
	decode(t, w, &other)

	missing := uint(999)
	cases := []struct {
		name string
		w    *httptest.ResponseRecorder
		code int
		err  string
	}{
		{"missing post detail", api.do("GET", "/api/posts/999", nil, ""), 404, "not_found"},
		{"bad id", api.do("GET", "/api/posts/abc", nil, ""), 400, "invalid_input"},
		{"comment on missing post", api.createComment(alice.Token, 999, "x", nil), 404, "not_found"},
		{"missing parent", api.createComment(alice.Token, p1, "x", &missing), 404, "not_found"},
		{"cross-post parent", api.createComment(alice.Token, p1, "x", &other.ID), 400, "invalid_parent"},
		{"empty comment", api.createComment(alice.Token, p1, "  ", nil), 400, "empty_content"},
		{"like missing comment", api.do("POST", "/api/comments/999/like", nil, alice.Token), 404, "not_found"},
		{"like bad id", api.do("POST", "/api/posts/0/like", nil, alice.Token), 400, "invalid_target"},
		{"bad sort", api.do("GET", "/api/posts?sort=top", nil, ""), 400, "invalid_input"},
		{"duplicate username", api.do("POST", "/api/auth/register", map[string]string{"username": "alice", "password": "password1"}, ""), 409, "username_taken"},
		{"wrong password", api.do("POST", "/api/auth/login", map[string]string{"username": "alice", "password": "nope"}, ""), 401, "invalid_credentials"},
	}
	for _, tc := range cases {
		if tc.w.Code != tc.code {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.code, tc.w.Code, tc.w.Body.String())
			continue
		}
		var body struct {
			Error string `json:"error"`
		}
		decode(t, tc.w, &body)
		if body.Error != tc.err {
			t.Errorf("%s: expected error %q, got %q", tc.name, tc.err, body.Error)
		}
	}
}

func TestDeleteRequiresAuthor(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")
	bob := api.register("bob")
	postID := api.createPost(alice.Token, "mine")

	w := api.do("DELETE", fmt.Sprintf("/api/posts/%d", postID), nil, bob.Token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
	w = api.do("DELETE", fmt.Sprintf("/api/posts/%d", postID), nil, alice.Token)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	w = api.do("GET", fmt.Sprintf("/api/posts/%d", postID), nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")

	w := api.do("GET", "/api/auth/me", nil, alice.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for /me, got %d", w.Code)
	}

	w = api.do("POST", "/api/auth/logout", nil, alice.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for logout, got %d", w.Code)
	}

	w = api.do("GET", "/api/auth/me", nil, alice.Token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}
}

func TestCookieSessionWithoutTokens(t *testing.T) {
	api := setupTestRouter(t, false)

	w := api.do("POST", "/api/auth/register", map[string]string{"username": "alice", "password": "password1"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var resp authResp
	decode(t, w, &resp)
	if resp.Token != "" {
		t.Errorf("Expected no token without redis, got %q", resp.Token)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie")
	}

	w = api.do("POST", "/api/posts", map[string]string{"content": "via cookie"}, "", cookies...)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 with session cookie, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListPosts(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")
	bob := api.register("bob")
	first := api.createPost(alice.Token, "first")
	api.createPost(alice.Token, "second")
	api.do("POST", fmt.Sprintf("/api/posts/%d/like", first), nil, bob.Token)

	for _, sort := range []string{"new", "hot"} {
		w := api.do("GET", "/api/posts?sort="+sort, nil, bob.Token)
		if w.Code != http.StatusOK {
			t.Fatalf("list %s: %d", sort, w.Code)
		}
		var page struct {
			Posts []struct {
				ID      uint `json:"id"`
				IsLiked bool `json:"is_liked"`
			} `json:"posts"`
			Sort string `json:"sort"`
		}
		decode(t, w, &page)
		if len(page.Posts) != 2 || page.Sort != sort {
			t.Fatalf("list %s: unexpected page %+v", sort, page)
		}
		for _, p := range page.Posts {
			if p.IsLiked != (p.ID == first) {
				t.Errorf("list %s: post %d is_liked=%v", sort, p.ID, p.IsLiked)
			}
		}
	}
}

func TestListAndEditComments(t *testing.T) {
	api := setupTestRouter(t, true)
	alice := api.register("alice")
	bob := api.register("bob")
	postID := api.createPost(alice.Token, "topic")

	var first struct {
		ID uint `json:"id"`
	}
	decode(t, api.createComment(bob.Token, postID, "first", nil), &first)
	api.createComment(alice.Token, postID, "reply", &first.ID)
	api.do("POST", fmt.Sprintf("/api/comments/%d/like", first.ID), nil, alice.Token)

	w := api.do("GET", fmt.Sprintf("/api/comments?post=%d", postID), nil, alice.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("list comments: %d %s", w.Code, w.Body.String())
	}
	var list struct {
		Comments []struct {
			ID        uint  `json:"id"`
			ParentID  *uint `json:"parent_id"`
			LikeCount int   `json:"like_count"`
			IsLiked   bool  `json:"is_liked"`
		} `json:"comments"`
	}
	decode(t, w, &list)
	if len(list.Comments) != 2 {
		t.Fatalf("Expected 2 comments, got %+v", list.Comments)
	}
	if list.Comments[0].ID != first.ID || list.Comments[0].LikeCount != 1 || !list.Comments[0].IsLiked {
		t.Errorf("Unexpected first comment: %+v", list.Comments[0])
	}
	if list.Comments[1].ParentID == nil || *list.Comments[1].ParentID != first.ID {
		t.Errorf("Expected reply to point at %d, got %+v", first.ID, list.Comments[1])
	}

	if w := api.do("GET", "/api/comments", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without post filter, got %d", w.Code)
	}

	path := fmt.Sprintf("/api/comments/%d", first.ID)
	if w := api.do("PATCH", path, map[string]string{"content": "hijack"}, alice.Token); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 editing another user's comment, got %d", w.Code)
	}
	w = api.do("PATCH", path, map[string]string{"content": "edited"}, bob.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("edit comment: %d %s", w.Code, w.Body.String())
	}
	var edited struct {
		Content string `json:"content"`
		Author  struct {
			Username string `json:"username"`
		} `json:"author"`
	}
	decode(t, w, &edited)
	if edited.Content != "edited" || edited.Author.Username != "bob" {
		t.Errorf("Unexpected edited comment: %+v", edited)
	}
}
