package terms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/internal/exporter"
)

const fall2019 = `{"response":{"terms":[{"name":"2019 Fall","fullyGradedDeadline":"2020-01-08",
	"sessions":[{"beginDate":"2019-08-21"}]}]}}`

func newTestServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Clone(context.Background()))
		id := strings.TrimPrefix(r.URL.Path, "/terms/")
		body, ok := responses[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testAPIConfig(baseURL string) config.TermsAPIConfig {
	return config.TermsAPIConfig{
		BaseURL:           baseURL + "/terms",
		AppID:             "id",
		AppKey:            "key",
		TermIDs:           []string{"2198"},
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
	}
}

func TestFetchTerm(t *testing.T) {
	srv, seen := newTestServer(t, map[string]string{"2198": fall2019})
	client := NewClient(testAPIConfig(srv.URL), nil)

	term, err := client.FetchTerm(context.Background(), "2198")
	require.NoError(t, err)
	assert.Equal(t, "2198", term.ID)
	assert.Equal(t, "2019 Fall", term.Name)
	assert.Equal(t, time.Date(2019, 8, 21, 0, 0, 0, 0, time.UTC), term.Start)
	assert.Equal(t, time.Date(2020, 1, 8, 0, 0, 0, 0, time.UTC), term.End)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "ugrd", req.URL.Query().Get("career-code"))
	assert.Equal(t, "id", req.Header.Get("app_id"))
	assert.Equal(t, "key", req.Header.Get("app_key"))
}

func TestFetchTermErrors(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{
		"empty":   `{"response":{"terms":[]}}`,
		"nostart": `{"response":{"terms":[{"name":"X","fullyGradedDeadline":"2020-01-08","sessions":[]}]}}`,
		"noend":   `{"response":{"terms":[{"name":"X","sessions":[{"beginDate":"2019-08-21"}]}]}}`,
		"baddate": `{"response":{"terms":[{"name":"X","fullyGradedDeadline":"08/01/2020","sessions":[{"beginDate":"2019-08-21"}]}]}}`,
		"notjson": `<html>`,
		"unnamed": `{"response":{"terms":[{"fullyGradedDeadline":"2020-01-08","sessions":[{"beginDate":"2019-08-21"}]}]}}`,
	})
	client := NewClient(testAPIConfig(srv.URL), nil)

	tests := []struct {
		id       string
		wantType apperrors.ErrorType
	}{
		{"missing", apperrors.ErrTypeNetwork},
		{"empty", apperrors.ErrTypeParsing},
		{"nostart", apperrors.ErrTypeParsing},
		{"noend", apperrors.ErrTypeParsing},
		{"baddate", apperrors.ErrTypeParsing},
		{"notjson", apperrors.ErrTypeParsing},
		{"unnamed", apperrors.ErrTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := client.FetchTerm(context.Background(), tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}

func TestFetchTermsSkipsFailures(t *testing.T) {
	srv, seen := newTestServer(t, map[string]string{"2198": fall2019})
	client := NewClient(testAPIConfig(srv.URL), nil)

	terms, err := client.FetchTerms(context.Background(), []string{"2192", "2198", "2202"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "2019 Fall", terms[0].Name)
	assert.Len(t, *seen, 3)
}

func TestFetchTermsCanceled(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"2198": fall2019})
	client := NewClient(testAPIConfig(srv.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchTerms(ctx, []string{"2198"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver(t *testing.T) {
	newEnv := func(t *testing.T) (*config.Config, *config.Paths, *exporter.PreparedExporter) {
		cfg := config.Default()
		paths := config.GetPaths(t.TempDir(), cfg.Paths)
		require.NoError(t, paths.EnsureDirectories())
		return cfg, paths, exporter.NewPreparedExporter(exporter.NewCSVWriter(paths, nil), paths)
	}

	t.Run("api terms are cached", func(t *testing.T) {
		srv, _ := newTestServer(t, map[string]string{"2198": fall2019})
		cfg, paths, exp := newEnv(t)
		cfg.TermsAPI = testAPIConfig(srv.URL)

		r := NewResolver(cfg, paths, NewClient(cfg.TermsAPI, nil), exp, nil)
		terms, source, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceAPI, source)
		require.Len(t, terms, 1)
		assert.True(t, config.FileExists(paths.TermsCSV))

		// Without credentials the cache is used
		cfg.TermsAPI.AppKey = ""
		cached, source, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceCache, source)
		assert.Equal(t, terms, cached)
	})

	t.Run("config terms win over cache", func(t *testing.T) {
		cfg, paths, exp := newEnv(t)
		cfg.Terms = []config.TermConfig{{Name: "Spring 2019", Start: "2019-01-15", End: "2019-05-17"}}

		terms, source, err := NewResolver(cfg, paths, nil, exp, nil).Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceConfig, source)
		require.Len(t, terms, 1)
		assert.Equal(t, "Spring 2019", terms[0].Name)
	})

	t.Run("no terms anywhere", func(t *testing.T) {
		cfg, paths, exp := newEnv(t)
		terms, source, err := NewResolver(cfg, paths, nil, exp, nil).Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceNone, source)
		assert.Empty(t, terms)
	})
}
