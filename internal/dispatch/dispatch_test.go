package dispatch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scraptool/corefetch/internal/antidetect"
	"github.com/scraptool/corefetch/internal/auth"
	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/dispatch"
	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/internal/fetcher"
	"github.com/scraptool/corefetch/internal/session"
	"github.com/scraptool/corefetch/internal/structure"
)

// fakeFetcher serves canned HTML by URL path, standing in for C4 so tests
// never touch the network.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.FetchRequest) (fetcher.FetchResult, *fetcher.FetchError) {
	html, ok := f.pages[req.URL.Path]
	if !ok {
		return fetcher.FetchResult{}, &fetcher.FetchError{Message: "404 not found", Cause: fetcher.ErrCauseNotFound}
	}
	return fetcher.FetchResult{
		URL:          req.URL,
		FinalURL:     req.URL,
		HTTPStatus:   200,
		ContentBytes: []byte(html),
		ContentType:  "text/html; charset=utf-8",
	}, nil
}

// fakeVerifier maps fixed tokens to group sets, standing in for auth.TokenVerifier.
type fakeVerifier struct {
	tokens map[string][]string
}

func (v *fakeVerifier) Verify(token string) (auth.TokenInfo, *auth.AuthError) {
	groups, ok := v.tokens[token]
	if !ok {
		return auth.TokenInfo{}, &auth.AuthError{Cause: auth.ErrCauseMalformed}
	}
	return auth.TokenInfo{Groups: groups}, nil
}

func newTestDispatcher(t *testing.T, pages map[string]string, verifier auth.TokenVerifier) *dispatch.Dispatcher {
	t.Helper()
	root := t.TempDir()
	blobs, err := session.NewFileBlobStore(root)
	require.NoError(t, err)
	index, err := session.NewFileMetadataIndex(root)
	require.NoError(t, err)
	store := session.NewStore(blobs, index)

	f := &fakeFetcher{pages: pages}
	x := extractor.NewDomExtractor()
	c := crawler.NewCrawler(f, x, nil)
	a := structure.NewAnalyzer()
	profiles := antidetect.NewCurrent()

	return dispatch.New("corefetch", f, x, a, c, store, profiles, verifier, nil)
}

const seedHTML = `<html><head><title>Seed</title></head><body><h1>Seed page</h1><a href="/a">A</a><a href="/b">B</a><a href="http://other-host/x">X</a></body></html>`
const pageAHTML = `<html><head><title>Page A</title></head><body><p>Content of page A.</p></body></html>`
const pageBHTML = `<html><head><title>Page B</title></head><body><p>Content of page B.</p></body></html>`

func TestDispatch_Ping(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	out := d.Dispatch(context.Background(), "ping", nil)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "corefetch", out["service"])
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	out := d.Dispatch(context.Background(), "nonexistent_tool", nil)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "UNKNOWN_TOOL", out["error_code"])
}

func TestDispatch_SetAntidetection_InvalidProfile(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	out := d.Dispatch(context.Background(), "set_antidetection", map[string]interface{}{"profile": "bogus"})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "INVALID_PROFILE", out["error_code"])
}

func TestDispatch_SetAntidetection_Valid(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	out := d.Dispatch(context.Background(), "set_antidetection", map[string]interface{}{
		"profile":          "stealth",
		"rate_limit_delay": 2.5,
	})
	require.Equal(t, true, out["success"])
	assert.Equal(t, "stealth", out["profile"])
	assert.Equal(t, 2.5, out["rate_limit_delay"])
}

func TestDispatch_GetContent_InlineSinglePage(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"/": seedHTML}, nil)
	out := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":           "http://seed-host/",
		"parse_results": false,
	})
	require.Equal(t, true, out["success"], "%v", out)
	assert.Equal(t, "Seed", out["title"])
	assert.Nil(t, out["response_type"])
}

func TestDispatch_GetContent_Depth2ProducesSession(t *testing.T) {
	pages := map[string]string{"/": seedHTML, "/a": pageAHTML, "/b": pageBHTML}
	d := newTestDispatcher(t, pages, nil)
	out := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":                 "http://seed-host/",
		"depth":               2,
		"max_pages_per_level": 2,
		"parse_results":       false,
	})
	require.Equal(t, true, out["success"], "%v", out)
	assert.Equal(t, "session", out["response_type"])
	assert.Equal(t, 3, out["total_pages"])
	sessionID, ok := out["session_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, sessionID)

	info := d.Dispatch(context.Background(), "get_session_info", map[string]interface{}{"session_id": sessionID})
	require.Equal(t, true, info["success"], "%v", info)
}

func TestDispatch_GetContent_InvalidURL(t *testing.T) {
	d := newTestDispatcher(t, nil, nil)
	out := d.Dispatch(context.Background(), "get_content", map[string]interface{}{"url": "not a url"})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "INVALID_URL", out["error_code"])
}

func TestDispatch_GetStructure(t *testing.T) {
	d := newTestDispatcher(t, map[string]string{"/": seedHTML}, nil)
	out := d.Dispatch(context.Background(), "get_structure", map[string]interface{}{"url": "http://seed-host/"})
	require.Equal(t, true, out["success"], "%v", out)
	links, ok := out["internal_links"].([]interface{})
	require.True(t, ok)
	assert.Len(t, links, 2)
}

func TestDispatch_GroupACL(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string][]string{
		"token-a": {"team-a"},
		"token-b": {"team-b"},
		"token-m": {"team-a", "team-b"},
	}}
	d := newTestDispatcher(t, map[string]string{"/": seedHTML}, verifier)

	created := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":        "http://seed-host/",
		"session":    true,
		"auth_token": "token-a",
	})
	require.Equal(t, true, created["success"], "%v", created)
	sessionID := created["session_id"].(string)

	deniedOut := d.Dispatch(context.Background(), "get_session_info", map[string]interface{}{
		"session_id": sessionID,
		"auth_token": "token-b",
	})
	assert.Equal(t, false, deniedOut["success"])
	assert.Equal(t, "PERMISSION_DENIED", deniedOut["error_code"])

	allowedOut := d.Dispatch(context.Background(), "get_session_info", map[string]interface{}{
		"session_id": sessionID,
		"auth_token": "token-m",
	})
	assert.Equal(t, true, allowedOut["success"], "%v", allowedOut)
}

func TestDispatch_AuthError_UnknownToken(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string][]string{"token-a": {"team-a"}}}
	d := newTestDispatcher(t, nil, verifier)
	out := d.Dispatch(context.Background(), "ping", map[string]interface{}{"auth_token": "garbage"})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "AUTH_ERROR", out["error_code"])
}

func TestDispatch_SessionChunkRoundTrip(t *testing.T) {
	pages := map[string]string{"/": seedHTML}
	d := newTestDispatcher(t, pages, nil)
	created := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":           "http://seed-host/",
		"session":       true,
		"parse_results": false,
	})
	require.Equal(t, true, created["success"], "%v", created)
	sessionID := created["session_id"].(string)
	totalChunks := created["total_chunks"].(int)
	if totalChunks == 0 {
		totalChunks = 1
	}

	chunkOut := d.Dispatch(context.Background(), "get_session_chunk", map[string]interface{}{
		"session_id":  sessionID,
		"chunk_index": 0,
	})
	require.Equal(t, true, chunkOut["success"], "%v", chunkOut)
	assert.Equal(t, sessionID, chunkOut["session_id"])

	badOut := d.Dispatch(context.Background(), "get_session_chunk", map[string]interface{}{
		"session_id":  sessionID,
		"chunk_index": totalChunks + 50,
	})
	assert.Equal(t, false, badOut["success"])
	assert.Equal(t, "INVALID_CHUNK_INDEX", badOut["error_code"])
}

func TestDispatch_ListAndUrls(t *testing.T) {
	pages := map[string]string{"/": seedHTML}
	d := newTestDispatcher(t, pages, nil)
	created := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":           "http://seed-host/",
		"session":       true,
		"parse_results": false,
	})
	require.Equal(t, true, created["success"], "%v", created)
	sessionID := created["session_id"].(string)

	listOut := d.Dispatch(context.Background(), "list_sessions", nil)
	require.Equal(t, true, listOut["success"], "%v", listOut)
	sessions, ok := listOut["sessions"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, sessions, 1)

	urlsOut := d.Dispatch(context.Background(), "get_session_urls", map[string]interface{}{
		"session_id": sessionID,
		"base_url":   "https://api.example.com",
	})
	require.Equal(t, true, urlsOut["success"], "%v", urlsOut)
	chunkURLs, ok := urlsOut["chunk_urls"].([]string)
	require.True(t, ok)
	require.Len(t, chunkURLs, 1)
	assert.Contains(t, chunkURLs[0], sessionID)
}

func TestDispatch_GetSession_ContentTooLarge(t *testing.T) {
	pages := map[string]string{"/": seedHTML}
	d := newTestDispatcher(t, pages, nil)
	created := d.Dispatch(context.Background(), "get_content", map[string]interface{}{
		"url":           "http://seed-host/",
		"session":       true,
		"parse_results": false,
	})
	require.Equal(t, true, created["success"], "%v", created)
	sessionID := created["session_id"].(string)

	out := d.Dispatch(context.Background(), "get_session", map[string]interface{}{
		"session_id": sessionID,
		"max_bytes":  1,
	})
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "CONTENT_TOO_LARGE", out["error_code"])
}
