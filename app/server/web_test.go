package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/folio/app/server/mocks"
	"github.com/umputun/folio/app/store"
	"github.com/umputun/folio/app/theme"
)

const testVisitor = "5f0c6b8e-3c59-4f4b-9d7c-0c2d6c1d1a11"

func TestServer_HandlePage(t *testing.T) {
	t.Run("new visitor gets system theme and a cookie", func(t *testing.T) {
		st := newMemStore()
		srv := newTestServer(t, st)

		req := httptest.NewRequest(http.MethodGet, "/posts/hello.html", http.NoBody)
		req.Header.Set(theme.HintHeader, `"dark"`)
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `<html lang="en" data-theme="dark">`)
		assert.Contains(t, body, `<figure class="md-figure"><img src="/a.jpg" alt="A"/><figcaption>Caption A</figcaption></figure>`)
		assert.Equal(t, theme.HintHeader, rec.Header().Get("Accept-CH"))

		cookie := findCookie(rec, visitorCookie)
		require.NotNil(t, cookie)
		_, err := uuid.Parse(cookie.Value)
		require.NoError(t, err)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "dark", st.value("prefs/"+cookie.Value+"/theme"))
	})

	t.Run("stored preference beats client hint", func(t *testing.T) {
		st := newMemStore()
		st.data["prefs/"+testVisitor+"/theme"] = []byte("light")
		srv := newTestServer(t, st)

		req := newVisitorRequest(http.MethodGet, "/")
		req.Header.Set(theme.HintHeader, "dark")
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `data-theme="light"`)
		assert.Nil(t, findCookie(rec, visitorCookie), "known visitor keeps the cookie")
	})

	t.Run("no hint and no preference is light", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/"))
		assert.Contains(t, rec.Body.String(), `data-theme="light"`)
	})

	t.Run("malformed visitor cookie replaced", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.AddCookie(&http.Cookie{Name: visitorCookie, Value: "../../etc"})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)
		cookie := findCookie(rec, visitorCookie)
		require.NotNil(t, cookie)
		assert.NotEqual(t, "../../etc", cookie.Value)
	})

	t.Run("broken store falls back to hint", func(t *testing.T) {
		st := &mocks.KVStoreMock{
			GetFunc: func(context.Context, string) ([]byte, error) { return nil, errors.New("db is down") },
			SetFunc: func(context.Context, string, []byte) error { return errors.New("db is down") },
		}
		srv := newTestServer(t, st)

		req := newVisitorRequest(http.MethodGet, "/")
		req.Header.Set(theme.HintHeader, "dark")
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `data-theme="dark"`)
		assert.Len(t, st.SetCalls(), 1)
	})

	t.Run("menu query renders dropdown open", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/?menu=work"))

		body := rec.Body.String()
		assert.Contains(t, body, `<div class="dropdown active" id="work">`)
		assert.Contains(t, body, `<div class="dropdown" id="more">`)
	})

	t.Run("unknown menu ignored", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/?menu=nope"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "dropdown active")
	})

	t.Run("draft page not published", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/secret.html"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "not yet")
	})

	t.Run("missing page", func(t *testing.T) {
		srv := newTestServer(t, newMemStore())
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/nope.html"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_HandleThemeToggle(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		hint     string
		expected string
	}{
		{name: "no preference, light system", expected: "dark"},
		{name: "no preference, dark system", hint: "dark", expected: "light"},
		{name: "stored light", stored: "light", expected: "dark"},
		{name: "stored dark", stored: "dark", expected: "light"},
		{name: "stored garbage", stored: "sepia", expected: "dark"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newMemStore()
			if tc.stored != "" {
				st.data["prefs/"+testVisitor+"/theme"] = []byte(tc.stored)
			}
			srv := newTestServer(t, st)

			req := newVisitorRequest(http.MethodPost, "/web/theme")
			req.Header.Set("Referer", "http://example.com/posts/hello.html?menu=more")
			req.Host = "example.com"
			if tc.hint != "" {
				req.Header.Set(theme.HintHeader, tc.hint)
			}
			rec := httptest.NewRecorder()
			srv.routes().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/posts/hello.html?menu=more", rec.Header().Get("Location"))
			assert.Equal(t, tc.expected, st.value("prefs/"+testVisitor+"/theme"))
		})
	}
}

func TestServer_HandleThemeToggle_Twice(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(t, st)

	for _, expected := range []string{"dark", "light"} {
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodPost, "/web/theme"))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.Equal(t, expected, st.value("prefs/"+testVisitor+"/theme"))

		page := httptest.NewRecorder()
		srv.routes().ServeHTTP(page, newVisitorRequest(http.MethodGet, "/"))
		assert.Contains(t, page.Body.String(), `data-theme="`+expected+`"`)
	}
}

func TestServer_HandleThemeToggle_HTMX(t *testing.T) {
	srv := newTestServer(t, newMemStore())
	req := newVisitorRequest(http.MethodPost, "/web/theme")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("HX-Refresh"))
}

func TestServer_ThemeAPI(t *testing.T) {
	st := newMemStore()
	srv := newTestServer(t, st)

	get := func() string {
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/api/theme"))
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeTheme(t, rec)
	}

	assert.Equal(t, "light", get())

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodPost, "/api/theme/toggle"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", decodeTheme(t, rec))
	assert.Equal(t, "dark", get())
}

func TestServer_ThemeForget(t *testing.T) {
	const key = "prefs/" + testVisitor + "/theme"

	t.Run("stored preference removed", func(t *testing.T) {
		st := newMemStore()
		st.data[key] = []byte("dark")
		srv := newTestServer(t, st)

		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodDelete, "/api/theme"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, st.has(key))

		// next page falls back to the client hint
		req := newVisitorRequest(http.MethodGet, "/")
		req.Header.Set(theme.HintHeader, "light")
		page := httptest.NewRecorder()
		srv.routes().ServeHTTP(page, req)
		assert.Contains(t, page.Body.String(), `data-theme="light"`)
	})

	t.Run("nothing stored", func(t *testing.T) {
		st := newMemStore()
		srv := newTestServer(t, st)
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodDelete, "/api/theme"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.Len(t, st.DeleteCalls(), 1)
		assert.Equal(t, key, st.DeleteCalls()[0].Key)
	})

	t.Run("store failure", func(t *testing.T) {
		st := &mocks.KVStoreMock{
			DeleteFunc: func(context.Context, string) error { return errors.New("db is down") },
		}
		srv := newTestServer(t, st)
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodDelete, "/api/theme"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_PrefsList(t *testing.T) {
	st := newMemStore()
	st.data["prefs/"+testVisitor+"/theme"] = []byte("dark")
	st.data["prefs/someone-else/theme"] = []byte("light")
	srv := newTestServer(t, st)

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, newVisitorRequest(http.MethodGet, "/api/prefs"))
	require.Equal(t, http.StatusOK, rec.Code)

	var keys []store.KeyInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	require.Len(t, keys, 1)
	assert.Equal(t, "theme", keys[0].Key)
	assert.Equal(t, 4, keys[0].Size)
	require.Len(t, st.ListCalls(), 1)
	assert.Equal(t, "prefs/"+testVisitor+"/", st.ListCalls()[0].Prefix)
}

func TestBackURL(t *testing.T) {
	tests := []struct {
		name, referer, expected string
	}{
		{"no referer", "", "/"},
		{"same host", "http://example.com/about.html", "/about.html"},
		{"relative", "/posts/a.html?x=1", "/posts/a.html?x=1"},
		{"other host", "http://evil.com/phish", "/"},
		{"bad url", "http://[::1", "/"},
		{"double slash path", "http://example.com//evil.com/x", "/"},
		{"relative double slash", "//evil.com/x", "/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://example.com/web/theme", http.NoBody)
			if tc.referer != "" {
				req.Header.Set("Referer", tc.referer)
			}
			assert.Equal(t, tc.expected, backURL(req))
		})
	}
}

func newVisitorRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, http.NoBody)
	req.AddCookie(&http.Cookie{Name: visitorCookie, Value: testVisitor})
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeTheme(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Theme string `json:"theme"`
	}
	require.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&resp))
	return resp.Theme
}
