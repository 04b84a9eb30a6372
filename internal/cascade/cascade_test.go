package cascade

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"sitewatcher/internal/executor"
	"sitewatcher/internal/manifest"
)

type recordingExecutor struct {
	calls   []string
	failOn  string
	deleted []*unstructured.Unstructured
}

func (r *recordingExecutor) Apply(context.Context, *unstructured.Unstructured) error {
	return errors.New("unexpected apply")
}

func (r *recordingExecutor) Delete(_ context.Context, obj *unstructured.Unstructured) error {
	desc := executor.Describe(obj)
	r.calls = append(r.calls, desc)
	if desc == r.failOn {
		return errors.New("the server is currently unable to handle the request")
	}
	r.deleted = append(r.deleted, obj)
	return nil
}

func (r *recordingExecutor) List(context.Context, schema.GroupVersionKind, string) ([]unstructured.Unstructured, error) {
	return nil, errors.New("unexpected list")
}

func staged(t *testing.T, store *manifest.Store, kind, namespace, name string) string {
	t.Helper()
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("ran.openshift.io/v1")
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	path, err := store.Stage(manifest.IdentityOf(obj), obj, manifest.BucketDelete)
	require.NoError(t, err)
	return path
}

func newTestStore(t *testing.T) *manifest.Store {
	t.Helper()
	store, err := manifest.NewStore(t.TempDir(), false, nil)
	require.NoError(t, err)
	return store
}

func TestProcess_DeletesClusterThenNamespace(t *testing.T) {
	store := newTestStore(t)
	path := staged(t, store, SiteKind, "site7", "site7")
	ex := &recordingExecutor{}

	cascaded, err := New(ex, store, nil).Process(context.Background(), store.List(manifest.BucketDelete))
	require.NoError(t, err)

	assert.Equal(t, []string{"site7"}, cascaded)
	assert.Equal(t, []string{"ManagedCluster/site7", "Namespace/site7"}, ex.calls)
	assert.Equal(t, ManagedClusterGVK, ex.deleted[0].GroupVersionKind())
	assert.Equal(t, "v1", ex.deleted[1].GetAPIVersion())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "staged snapshot should be unlinked")
}

func TestProcess_IgnoresOtherKinds(t *testing.T) {
	store := newTestStore(t)
	path := staged(t, store, "PolicyGenTemplate", "ztp-site", "common")
	ex := &recordingExecutor{}

	cascaded, err := New(ex, store, nil).Process(context.Background(), store.List(manifest.BucketDelete))
	require.NoError(t, err)

	assert.Empty(t, cascaded)
	assert.Empty(t, ex.calls)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestProcess_FailureKeepsSnapshot(t *testing.T) {
	store := newTestStore(t)
	path := staged(t, store, SiteKind, "site7", "site7")
	ex := &recordingExecutor{failOn: "ManagedCluster/site7"}

	_, err := New(ex, store, nil).Process(context.Background(), store.List(manifest.BucketDelete))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site7")

	// The namespace is never deleted after the cluster delete failed.
	assert.Equal(t, []string{"ManagedCluster/site7"}, ex.calls)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDependents(t *testing.T) {
	deps := Dependents("site1")
	require.Len(t, deps, 2)
	assert.Equal(t, "ManagedCluster", deps[0].GetKind())
	assert.Empty(t, deps[0].GetNamespace())
	assert.Equal(t, "site1", deps[0].GetName())
	assert.Equal(t, "Namespace", deps[1].GetKind())
	assert.Equal(t, "site1", deps[1].GetName())
}
