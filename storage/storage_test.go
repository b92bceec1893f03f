package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUploadPhoto(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", "real-estate-photos", server.Client(), zap.NewNop())
	url, err := client.UploadPhoto(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "jpeg-bytes", gotBody)
	assert.True(t, strings.HasPrefix(gotPath, "/storage/v1/object/real-estate-photos/"))
	assert.True(t, strings.HasSuffix(gotPath, ".jpg"))

	name := strings.TrimPrefix(gotPath, "/storage/v1/object/real-estate-photos/")
	assert.Equal(t, server.URL+"/storage/v1/object/public/real-estate-photos/"+name, url)
}

func TestUploadPhotoRetriesServerErrors(t *testing.T) {
	attempts := 0
	var names []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		names = append(names, r.URL.Path)
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", "b", server.Client(), zap.NewNop())
	client.backoffBase = time.Millisecond
	_, err := client.UploadPhoto(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, names[0], names[1], "object name must not change across attempts")
	assert.Equal(t, names[1], names[2])
}

func TestUploadPhotoFailsFastOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", "b", server.Client(), zap.NewNop())
	_, err := client.UploadPhoto(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "403")
}
