package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDiseases(t *testing.T) {
	t.Run("successfully fetches diseases", func(t *testing.T) {
		mockDiseases := []CollectionInfo{
			{Name: "covid_19", DisplayName: "COVID-19", ChunkCount: 42},
			{Name: "influenza", DisplayName: "influenza", ChunkCount: 7},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/diseases", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(mockDiseases)
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		diseases, err := fetchDiseases()

		require.NoError(t, err)
		require.Len(t, diseases, 2)
		assert.Equal(t, "covid_19", diseases[0].Name)
		assert.Equal(t, "COVID-19", diseases[0].DisplayName)
		assert.Equal(t, 42, diseases[0].ChunkCount)
	})

	t.Run("handles empty list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		diseases, err := fetchDiseases()

		require.NoError(t, err)
		assert.Empty(t, diseases)
	})

	t.Run("handles connection error", func(t *testing.T) {
		oldServerURL := serverURL
		serverURL = "http://localhost:99999" // Invalid port
		defer func() { serverURL = oldServerURL }()

		_, err := fetchDiseases()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect")
	})

	t.Run("handles error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"listing diseases failed"}`))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		_, err := fetchDiseases()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
		assert.Contains(t, err.Error(), "listing diseases failed")
	})
}

func TestCreateDisease(t *testing.T) {
	t.Run("successfully creates disease", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/diseases", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req CreateDiseaseRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "COVID-19", req.Name)

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(CollectionInfo{
				Name:        "covid_19",
				DisplayName: "COVID-19",
			})
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		info, err := createDisease("COVID-19")

		require.NoError(t, err)
		assert.Equal(t, "covid_19", info.Name)
		assert.Equal(t, "COVID-19", info.DisplayName)
	})

	t.Run("handles validation error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"name field is required"}`))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		_, err := createDisease("")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "name field is required")
	})
}

func TestDeleteDisease(t *testing.T) {
	t.Run("successfully deletes disease", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/diseases/influenza", r.URL.Path)
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(MessageResponse{Message: `disease "influenza" deleted`})
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		msg, err := deleteDisease("influenza")

		require.NoError(t, err)
		assert.Contains(t, msg.Message, "influenza")
	})

	t.Run("handles missing disease", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"disease not found"}`))
		}))
		defer server.Close()

		oldServerURL := serverURL
		serverURL = server.URL
		defer func() { serverURL = oldServerURL }()

		_, err := deleteDisease("nonexistent")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disease not found")
	})
}
