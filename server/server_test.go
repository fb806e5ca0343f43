package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_machine/generator"
	"content_machine/logging"
	"content_machine/publisher"
	"content_machine/runner"
)

func newTestServer(t *testing.T) (*Server, *publisher.Publisher) {
	t.Helper()
	pub := publisher.New(t.TempDir())
	r, err := runner.New(runner.Options{LLM: generator.MockLLM{}, Publisher: pub, Logger: logging.Discard(), Model: "mock"})
	require.NoError(t, err)
	srv, err := New(Options{Runner: r, Logger: logging.Discard(), Warnings: []string{"SERPER_API_KEY not found. Search might fail."}})
	require.NoError(t, err)
	return srv, pub
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validRun = `{"topic":"Space weather","audience":"learners","tone":"Friendly","language":"English",
"word_count_min":800,"word_count_max":1200,"use_search":false,"num_sources":5}`

func TestCreateRunAndFetchArticle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := do(t, h, http.MethodPost, "/api/runs", validRun)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string             `json:"session_id"`
		File      string             `json:"file"`
		Markdown  string             `json:"markdown"`
		HTML      string             `json:"html"`
		Outcome   *generator.Outcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.File, "space-weather")
	assert.Contains(t, resp.HTML, "<h1>Example article</h1>")
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, "Space weather", resp.Outcome.Request.Topic)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)

	last := do(t, h, http.MethodGet, "/api/runs", "", cookies[0])
	require.Equal(t, http.StatusOK, last.Code)
	assert.Contains(t, last.Body.String(), resp.File)

	art := do(t, h, http.MethodGet, "/api/articles/"+resp.File, "")
	require.Equal(t, http.StatusOK, art.Code)
	var article articleResp
	require.NoError(t, json.Unmarshal(art.Body.Bytes(), &article))
	assert.Equal(t, resp.Markdown, article.Markdown)
	assert.Equal(t, strings.TrimSuffix(resp.File, ".md"), article.Name)

	dl := do(t, h, http.MethodGet, "/api/articles/"+strings.TrimSuffix(resp.File, ".md")+"/download", "")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), resp.File)
	assert.Equal(t, resp.Markdown, dl.Body.String())
}

func TestCreateRunValidation(t *testing.T) {
	srv, pub := newTestServer(t)
	h := srv.Routes()

	for _, body := range []string{
		`{"topic":"","tone":"Friendly","language":"English","word_count_min":800,"word_count_max":1200,"num_sources":5}`,
		`{"topic":"x","tone":"Friendly","language":"English","word_count_min":1300,"word_count_max":1200,"num_sources":5}`,
		`{"topic":"x","tone":"Friendly","language":"Klingon","word_count_min":800,"word_count_max":1200,"num_sources":5}`,
		`{"topic":"x","tone":"Friendly","language":"English","word_count_min":800,"word_count_max":1200,"num_sources":30}`,
		`not json`,
	} {
		rec := do(t, h, http.MethodPost, "/api/runs", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	entries, err := pub.History()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateRunRefusedOnConfigError(t *testing.T) {
	pub := publisher.New(t.TempDir())
	srv, err := New(Options{Publisher: pub, ConfigErr: errors.New("config: llm.api_key: missing OPENAI_API_KEY"), Logger: logging.Discard()})
	require.NoError(t, err)
	h := srv.Routes()

	rec := do(t, h, http.MethodPost, "/api/runs", validRun)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "OPENAI_API_KEY")

	opts := do(t, h, http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, opts.Code)
	assert.Contains(t, opts.Body.String(), "OPENAI_API_KEY")

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/history", "").Code)
}

func TestOptions(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Routes(), http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp optionsResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Professional", "Friendly", "Academic", "Marketing"}, resp.Form.Tones)
	assert.Equal(t, 500, resp.Form.WordsMin)
	assert.Equal(t, 2500, resp.Form.WordsMax)
	assert.Equal(t, 100, resp.Form.WordsStep)
	assert.Equal(t, []string{"SERPER_API_KEY not found. Search might fail."}, resp.Warnings)
	assert.Empty(t, resp.ConfigErr)
}

func TestHistoryEndpointMarksMetadata(t *testing.T) {
	srv, pub := newTestServer(t)
	_, err := pub.Save("# a", publisher.Metadata{Topic: "With meta"}, 0)
	require.NoError(t, err)
	require.NoError(t, publisher.WriteText(filepath.Join(pub.Dir(), "20240101_000000_bare.md"), "# bare"))
	require.NoError(t, publisher.WriteText(filepath.Join(pub.Dir(), "20240101_000000_bad.md"), "# bad"))
	require.NoError(t, publisher.WriteText(filepath.Join(pub.Dir(), "20240101_000000_bad.json"), "{"))

	rec := do(t, srv.Routes(), http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		Topic         string `json:"topic"`
		MetadataState string `json:"metadata_state"`
		MetadataError string `json:"metadata_error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	states := map[string]string{}
	for _, e := range entries {
		states[e.Topic] = e.MetadataState
		if e.MetadataState != "ok" {
			assert.NotEmpty(t, e.MetadataError)
		}
	}
	assert.Equal(t, map[string]string{
		"With meta":            "ok",
		"20240101_000000_bare": "missing",
		"20240101_000000_bad":  "unreadable",
	}, states)
}

func TestArticleErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/articles/nope.md", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/articles/a%2Fb.md", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/runs", "").Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(generator.ErrSessionBusy))
	assert.Equal(t, http.StatusBadRequest, statusFor(&generator.ValidationError{Problems: []string{"x"}}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&generator.StageError{Stage: generator.StageWrite, Err: errors.New("x")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
}

func TestStaticIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Routes(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Content Machine")
}
