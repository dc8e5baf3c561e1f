package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/helpcomp/merchant-category-resolver/resolver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	results map[string]*resolver.Resolution
	calls   []string
}

func (f *fakeResolver) Resolve(_ context.Context, name, _ string) *resolver.Resolution {
	f.calls = append(f.calls, name)
	return f.results[name]
}

func newTestServer(results map[string]*resolver.Resolution) (*server, *fakeResolver) {
	fr := &fakeResolver{results: results}
	return &server{resolver: fr, defaultCategory: "Other"}, fr
}

func TestHandleResolve(t *testing.T) {
	srv, _ := newTestServer(map[string]*resolver.Resolution{
		"Swiggy Order": {CategoryName: "Food & Dining", CategoryID: "12", Confidence: 0.9, Source: resolver.SourceSearch},
	})

	req := httptest.NewRequest(http.MethodPost, "/resolve",
		strings.NewReader(`{"name": "Swiggy Order", "userId": "u1"}`))
	rec := httptest.NewRecorder()
	srv.handleResolve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Resolved)
	assert.Equal(t, "Food & Dining", resp.CategoryName)
	assert.Equal(t, "12", resp.CategoryID)
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Equal(t, "search", resp.Source)
}

func TestHandleResolveUnresolvedDefaults(t *testing.T) {
	srv, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/resolve",
		strings.NewReader(`{"name": "Mystery Shop", "userId": "u1"}`))
	rec := httptest.NewRecorder()
	srv.handleResolve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Resolved)
	assert.Equal(t, "Other", resp.CategoryName)
	assert.Empty(t, resp.Source)
}

func TestHandleResolveBadRequests(t *testing.T) {
	srv, fr := newTestServer(nil)

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/resolve", nil)
		rec := httptest.NewRecorder()
		srv.handleResolve(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		srv.handleResolve(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("missing userId", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/resolve",
			strings.NewReader(`{"name": "Swiggy"}`))
		rec := httptest.NewRecorder()
		srv.handleResolve(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	assert.Empty(t, fr.calls)
}

func TestHandleCategorizeBatch(t *testing.T) {
	srv, fr := newTestServer(map[string]*resolver.Resolution{
		"Swiggy Order #1234": {CategoryName: "Food & Dining", Confidence: 0.9, Source: resolver.SourceLanguageModel},
	})

	body := CategorizeRequest{
		UserID: "u1",
		Transactions: []ImportedTransaction{
			{ID: "t1", Description: "Swiggy Order #1234", Amount: decimal.RequireFromString("-349.50")},
			{ID: "t2", Description: "Mystery Shop", Amount: decimal.RequireFromString("-120.00")},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/transactions/categorize", strings.NewReader(string(raw)))
	rec := httptest.NewRecorder()
	srv.handleCategorize(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CategorizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 2)

	first := resp.Transactions[0]
	assert.Equal(t, "t1", first.ID)
	assert.True(t, first.Resolved)
	assert.Equal(t, "Food & Dining", first.CategoryName)
	assert.Equal(t, "language-model", first.Source)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-349.50")))

	second := resp.Transactions[1]
	assert.Equal(t, "t2", second.ID)
	assert.False(t, second.Resolved)
	assert.Equal(t, "Other", second.CategoryName)

	assert.Equal(t, []string{"Swiggy Order #1234", "Mystery Shop"}, fr.calls)
}
