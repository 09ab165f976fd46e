package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

func TestClientGenerate(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(candidateBody("Juicy burgers and crispy fries.")))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL)
	text, err := c.Generate(context.Background(), "describe a burger joint", nil)
	require.NoError(t, err)
	require.Equal(t, "Juicy burgers and crispy fries.", text)
	require.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Equal(t, "describe a burger joint", gotBody.Contents[0].Parts[0].Text)
	require.Nil(t, gotBody.GenerationConfig)
}

func TestClientGenerateWithSchema(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(candidateBody(`{"recommendations":[]}`)))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL)
	schema := map[string]any{"type": "OBJECT"}
	_, err := c.Generate(context.Background(), "pick", schema)
	require.NoError(t, err)
	require.NotNil(t, gotBody.GenerationConfig)
	require.Equal(t, "application/json", gotBody.GenerationConfig.ResponseMimeType)
	require.Equal(t, "OBJECT", gotBody.GenerationConfig.ResponseSchema["type"])
}

func TestClientGenerateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Generate(context.Background(), "pick", nil)
	require.EqualError(t, err, "quota exceeded")
}

func TestClientGenerateOpaqueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Generate(context.Background(), "pick", nil)
	require.ErrorContains(t, err, "API error")
}

func TestClientGenerateMissingKey(t *testing.T) {
	c := NewClient("", "gemini-2.0-flash")
	_, err := c.Generate(context.Background(), "pick", nil)
	require.ErrorContains(t, err, "API key")
}

func TestClientGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL)
	_, err := c.Generate(context.Background(), "pick", nil)
	require.ErrorContains(t, err, "invalid response")
}

func TestDescriberStripsQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody(`"Tacos with a view."`)))
	}))
	defer srv.Close()

	d := NewDescriber(NewClientWithBaseURL("test-key", "gemini-2.0-flash", srv.URL))
	text, err := d.Describe(context.Background(), "taco truck by the beach")
	require.NoError(t, err)
	require.Equal(t, "Tacos with a view.", text)
}
