package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"

	"sitewatcher/internal/ztperrors"
)

func TestKubernetesSource_Watch(t *testing.T) {
	body := "{\"type\":\"ADDED\",\"object\":{\"kind\":\"SiteConfig\"}}\n{\"type\":\"DELETED\",\"object\":{\"kind\":\"SiteConfig\"}}\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ran.openshift.io/v1/siteconfigs", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("watch"))
		assert.Equal(t, "3", q.Get("timeoutSeconds"))
		assert.Equal(t, "1234", q.Get("resourceVersion"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	source, err := NewKubernetesSource(&rest.Config{Host: srv.URL}, SourceOptions{
		Group:          "ran.openshift.io",
		Version:        "v1",
		TimeoutSeconds: 3,
	}, nil)
	require.NoError(t, err)

	resp, err := source.Watch(context.Background(), "siteconfigs", "1234")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, body, string(resp.Payload))
}

func TestKubernetesSource_WatchNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"kind":"Status","apiVersion":"v1","status":"Failure","reason":"Forbidden","code":403}`))
	}))
	defer srv.Close()

	source, err := NewKubernetesSource(&rest.Config{Host: srv.URL}, SourceOptions{Group: "ran.openshift.io", Version: "v1"}, nil)
	require.NoError(t, err)

	resp, err := source.Watch(context.Background(), "siteconfigs", "")
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestKubernetesSource_WatchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	source, err := NewKubernetesSource(&rest.Config{Host: url}, SourceOptions{Group: "ran.openshift.io", Version: "v1", TimeoutSeconds: 1}, nil)
	require.NoError(t, err)

	_, err = source.Watch(context.Background(), "siteconfigs", "1")
	require.Error(t, err)
	assert.Equal(t, ztperrors.KindTransport, ztperrors.KindOf(err))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"ADDED"}`), 0o600))

	resp, err := FileSource{Path: path}.Watch(context.Background(), "siteconfigs", "")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, `{"type":"ADDED"}`, string(resp.Payload))

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing")}.Watch(context.Background(), "siteconfigs", "")
	assert.Equal(t, ztperrors.KindTransport, ztperrors.KindOf(err))
}

func TestResponse_Err(t *testing.T) {
	assert.NoError(t, Response{StatusCode: http.StatusOK}.Err())

	forbidden := Response{StatusCode: http.StatusForbidden}.Err()
	require.Error(t, forbidden)
	assert.Contains(t, forbidden.Error(), "403")
	assert.False(t, IsExpired(forbidden))

	gone := Response{StatusCode: http.StatusGone}.Err()
	require.Error(t, gone)
	assert.Contains(t, gone.Error(), "410")
	assert.True(t, IsExpired(gone))
	assert.True(t, IsExpired(ztperrors.Transport("watch siteconfigs", gone)))
}
