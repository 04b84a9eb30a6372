// Package executor applies, deletes and lists objects on the cluster.
//
// Two implementations exist: Kube talks to the API server through a
// controller-runtime client, CLI shells out to oc or kubectl the way an
// operator would by hand.
package executor

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const subsystem = "Executor"

// Executor mutates and queries the cluster.
type Executor interface {
	// Apply creates obj or brings the live object in line with it.
	Apply(ctx context.Context, obj *unstructured.Unstructured) error

	// Delete removes obj. Deleting an object that does not exist succeeds.
	Delete(ctx context.Context, obj *unstructured.Unstructured) error

	// List returns the objects of kind gvk in namespace.
	List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]unstructured.Unstructured, error)
}

// FileExecutor is implemented by executors that act on manifest files directly.
type FileExecutor interface {
	ApplyFile(ctx context.Context, path string) error
}

// ApplyFile applies every object in the manifest file at path.
func ApplyFile(ctx context.Context, ex Executor, path string) error {
	if fe, ok := ex.(FileExecutor); ok {
		return fe.ApplyFile(ctx, path)
	}
	objects, err := ReadManifestFile(path)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := ex.Apply(ctx, obj); err != nil {
			return fmt.Errorf("failed to apply %s: %w", path, err)
		}
	}
	return nil
}

// ApplyDir applies every manifest file below root in lexical order.
func ApplyDir(ctx context.Context, ex Executor, root string) (int, error) {
	files, err := ManifestFiles(root)
	if err != nil {
		return 0, err
	}
	for i, f := range files {
		if err := ApplyFile(ctx, ex, f); err != nil {
			return i, err
		}
	}
	return len(files), nil
}

// Describe renders an object reference for logs.
func Describe(obj *unstructured.Unstructured) string {
	if obj.GetNamespace() == "" {
		return fmt.Sprintf("%s/%s", obj.GetKind(), obj.GetName())
	}
	return fmt.Sprintf("%s/%s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName())
}
