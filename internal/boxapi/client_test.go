package boxapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairsailau/congabox2/internal/model"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		Token:       "test-token",
		BaseURL:     srv.URL,
		Model:       "azure__openai__gpt_4o_mini",
		Temperature: 0.2,
		MaxTokens:   1000,
		HTTPClient:  srv.Client(),
	}
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/2.0/files/content", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))

		var attrs struct {
			Name   string `json:"name"`
			Parent struct {
				ID string `json:"id"`
			} `json:"parent"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("attributes")), &attrs))
		require.Equal(t, "conga_template_20240101000000.docx", attrs.Name)
		require.Equal(t, "0", attrs.Parent.ID)

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "template bytes", string(content))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"entries":[{"id":"1234567890"}]}`)
	}))
	defer srv.Close()

	id, err := testClient(srv).UploadFile(context.Background(),
		strings.NewReader("template bytes"), "conga_template_20240101000000.docx")
	require.NoError(t, err)
	require.Equal(t, "1234567890", id)
}

func TestUploadFile_NoEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"entries":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).UploadFile(context.Background(),
		strings.NewReader("x"), "schema_20240101000000.json")
	require.Error(t, err)

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "upload", terr.Op)
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/2.0/ai/text_gen", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req textGenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "map the fields", req.Prompt)
		require.Equal(t, 0.2, req.Temperature)
		require.Equal(t, 1000, req.MaxTokens)
		require.Equal(t, "ai_agent_text_gen", req.AIAgent.Type)
		require.Equal(t, "azure__openai__gpt_4o_mini", req.AIAgent.BasicGen.Model)
		require.Len(t, req.Items, 3)
		require.Equal(t, "file", req.Items[0].Type)
		require.Equal(t, "f1", req.Items[0].ID)

		io.WriteString(w, `{"text":"conga_field,box_field,notes"}`)
	}))
	defer srv.Close()

	text, err := testClient(srv).GenerateText(context.Background(),
		"map the fields", []string{"f1", "f2", "f3"})
	require.NoError(t, err)
	require.Equal(t, "conga_field,box_field,notes", text)
}

func TestGenerateText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"message":"rate limited"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv).GenerateText(context.Background(), "prompt", nil)
	require.Error(t, err)

	var terr *model.TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "text_gen", terr.Op)
	require.Equal(t, http.StatusTooManyRequests, terr.StatusCode)
	require.Contains(t, terr.Body, "rate limited")
}

func TestValidateToken(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2.0/users/me", r.URL.Path)
		io.WriteString(w, `{"id":"me"}`)
	}))
	defer ok.Close()
	require.True(t, testClient(ok).ValidateToken(context.Background()))

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer denied.Close()
	require.False(t, testClient(denied).ValidateToken(context.Background()))
}
