package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostQuery(t *testing.T) {
	t.Run("successfully posts query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/query", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req QueryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "covid_19", req.Disease)
			assert.Equal(t, "What are the isolation guidelines?", req.Question)
			assert.Equal(t, 3, req.MaxAttempts)
			assert.Nil(t, req.Verify)

			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(QueryResponse{
				Answer:     "Isolate for five days [Source 1].",
				Verified:   true,
				Confidence: 0.93,
				References: []Reference{{SourceID: 1, Filename: "guidelines.md"}},
				Disease:    "covid_19",
				Attempts: []Attempt{
					{Number: 1, Confidence: 0.93, Verified: true},
				},
			})
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		resp, err := postQuery(QueryRequest{
			Disease:     "covid_19",
			Question:    "What are the isolation guidelines?",
			MaxAttempts: 3,
		})

		require.NoError(t, err)
		assert.True(t, resp.Verified)
		assert.InDelta(t, 0.93, resp.Confidence, 0.001)
		require.Len(t, resp.References, 1)
		assert.Equal(t, "guidelines.md", resp.References[0].Filename)
		require.Len(t, resp.Attempts, 1)
		assert.Equal(t, 1, resp.Attempts[0].Number)
	})

	t.Run("forwards verify false", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req QueryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Verify)
			assert.False(t, *req.Verify)

			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(QueryResponse{
				Answer:  "Isolate for five days [Source 1].",
				Disease: "covid_19",
			})
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		verify := false
		resp, err := postQuery(QueryRequest{
			Disease:  "covid_19",
			Question: "What are the isolation guidelines?",
			Verify:   &verify,
		})

		require.NoError(t, err)
		assert.False(t, resp.Verified)
	})

	t.Run("handles server error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"query failed"}`))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		_, err := postQuery(QueryRequest{Disease: "covid_19", Question: "anything"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "query failed")
	})

	t.Run("handles invalid json response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("not valid json"))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		_, err := postQuery(QueryRequest{Disease: "covid_19", Question: "anything"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})
}

func TestRunQuery(t *testing.T) {
	t.Run("joins question words and applies flags", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req QueryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "covid_19", req.Disease)
			assert.Equal(t, "What are the isolation guidelines", req.Question)
			require.NotNil(t, req.Verify)
			assert.False(t, *req.Verify)

			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(QueryResponse{
				Answer:  "Isolate for five days.",
				Disease: "covid_19",
			})
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		oldSimple, oldAttempts := querySimple, queryMaxAttempts
		querySimple, queryMaxAttempts = true, 0
		defer func() { querySimple, queryMaxAttempts = oldSimple, oldAttempts }()

		err := runQuery(queryCmd, []string{"covid_19", "What", "are", "the", "isolation", "guidelines"})

		require.NoError(t, err)
	})

	t.Run("rejects negative max attempts", func(t *testing.T) {
		oldSimple, oldAttempts := querySimple, queryMaxAttempts
		querySimple, queryMaxAttempts = false, -1
		defer func() { querySimple, queryMaxAttempts = oldSimple, oldAttempts }()

		err := runQuery(queryCmd, []string{"covid_19", "anything"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must not be negative")
	})
}
