package manifest

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ServerManagedFields lists the metadata fields the API server maintains.
// They carry no desired state and are removed before a snapshot is staged.
var ServerManagedFields = []string{
	"annotations",
	"creationTimestamp",
	"managedFields",
	"generation",
	"resourceVersion",
	"selfLink",
	"uid",
}

// PruneServerFields removes ServerManagedFields from obj's metadata in place.
func PruneServerFields(obj *unstructured.Unstructured) {
	for _, field := range ServerManagedFields {
		unstructured.RemoveNestedField(obj.Object, "metadata", field)
	}
}
