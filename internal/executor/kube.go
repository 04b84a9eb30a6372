package executor

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

// DefaultFieldOwner identifies this tool in managedFields.
const DefaultFieldOwner = "sitewatcher"

// Kube implements Executor using a controller-runtime client.
//
// Apply is create-or-update: a missing object is created, an existing one is
// replaced with the desired state carrying the live resourceVersion.
type Kube struct {
	client     client.Client
	fieldOwner string
	logger     logging.Logger
}

// NewKube creates an executor for the cluster described by config.
func NewKube(config *rest.Config, fieldOwner string, logger logging.Logger) (*Kube, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	c, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return NewKubeWithClient(c, fieldOwner, logger), nil
}

// NewKubeWithClient wraps an existing client.
func NewKubeWithClient(c client.Client, fieldOwner string, logger logging.Logger) *Kube {
	if fieldOwner == "" {
		fieldOwner = DefaultFieldOwner
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Kube{client: c, fieldOwner: fieldOwner, logger: logger}
}

// Apply creates or updates obj.
func (k *Kube) Apply(ctx context.Context, obj *unstructured.Unstructured) error {
	desired := obj.DeepCopy()

	live := &unstructured.Unstructured{}
	live.SetGroupVersionKind(desired.GroupVersionKind())
	err := k.client.Get(ctx, client.ObjectKeyFromObject(desired), live)
	switch {
	case apierrors.IsNotFound(err):
		if err := k.client.Create(ctx, desired, client.FieldOwner(k.fieldOwner)); err != nil {
			return ztperrors.Transport("apply "+Describe(obj), err)
		}
		k.logger.Debug(subsystem, "Created %s", Describe(obj))
		return nil
	case err != nil:
		return ztperrors.Transport("apply "+Describe(obj), err)
	}

	desired.SetResourceVersion(live.GetResourceVersion())
	if err := k.client.Update(ctx, desired, client.FieldOwner(k.fieldOwner)); err != nil {
		return ztperrors.Transport("apply "+Describe(obj), err)
	}
	k.logger.Debug(subsystem, "Updated %s", Describe(obj))
	return nil
}

// Delete removes obj, treating NotFound as success.
func (k *Kube) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	err := k.client.Delete(ctx, obj.DeepCopy())
	if apierrors.IsNotFound(err) {
		k.logger.Debug(subsystem, "%s already absent", Describe(obj))
		return nil
	}
	if err != nil {
		return ztperrors.Transport("delete "+Describe(obj), err)
	}
	k.logger.Debug(subsystem, "Deleted %s", Describe(obj))
	return nil
}

// List returns the objects of kind gvk in namespace.
func (k *Kube) List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]unstructured.Unstructured, error) {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(gvk.GroupVersion().WithKind(gvk.Kind + "List"))

	if err := k.client.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, ztperrors.Transport(fmt.Sprintf("list %s in %s", gvk.Kind, namespace), err)
	}
	return list.Items, nil
}
