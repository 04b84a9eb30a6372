// Package cascade removes the cluster resources owned by deleted sites.
package cascade

import (
	"context"
	"fmt"
	"iter"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"sitewatcher/internal/executor"
	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const subsystem = "CascadeDelete"

// SiteKind is the kind whose deletion cascades.
const SiteKind = "SiteConfig"

// ManagedClusterGVK identifies the cluster-scoped ManagedCluster registration of a site.
var ManagedClusterGVK = schema.GroupVersionKind{Group: "cluster.open-cluster-management.io", Version: "v1", Kind: "ManagedCluster"}

// NamespaceGVK identifies the namespace holding a site's resources.
var NamespaceGVK = corev1.SchemeGroupVersion.WithKind("Namespace")

// Store is the part of the manifest store the handler consumes.
type Store interface {
	Read(path string) (*unstructured.Unstructured, error)
	Remove(path string) error
}

// Handler tears down dependents of deleted sites.
type Handler struct {
	executor executor.Executor
	store    Store
	logger   logging.Logger
}

// New creates a Handler.
func New(ex executor.Executor, store Store, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{executor: ex, store: store, logger: logger}
}

// Dependents returns the resources removed when the site in namespace is deleted,
// in deletion order.
func Dependents(namespace string) []*unstructured.Unstructured {
	cluster := &unstructured.Unstructured{}
	cluster.SetGroupVersionKind(ManagedClusterGVK)
	cluster.SetName(namespace)

	ns := &unstructured.Unstructured{}
	ns.SetGroupVersionKind(NamespaceGVK)
	ns.SetName(namespace)

	return []*unstructured.Unstructured{cluster, ns}
}

// Process handles every staged file of paths and returns the namespaces cascaded.
//
// For a SiteConfig snapshot the ManagedCluster and Namespace named after its
// namespace are deleted, then the snapshot is unlinked. Snapshots of other kinds
// are left alone. The first failure stops processing.
func (h *Handler) Process(ctx context.Context, paths iter.Seq[string]) ([]string, error) {
	var cascaded []string
	for path := range paths {
		obj, err := h.store.Read(path)
		if err != nil {
			return cascaded, err
		}

		if obj.GetKind() != SiteKind {
			h.logger.Debug(subsystem, "Ignoring deleted %s", executor.Describe(obj))
			continue
		}

		site := obj.GetNamespace()
		if site == "" {
			return cascaded, ztperrors.Data("cascade delete", fmt.Errorf("%s has no namespace", path))
		}

		for _, dep := range Dependents(site) {
			h.logger.Info(subsystem, "Deleting %s of site %s", executor.Describe(dep), site)
			if err := h.executor.Delete(ctx, dep); err != nil {
				return cascaded, fmt.Errorf("failed to cascade deletion of site %s: %w", site, err)
			}
		}

		if err := h.store.Remove(path); err != nil {
			return cascaded, err
		}
		cascaded = append(cascaded, site)
	}
	return cascaded, nil
}
