package manifest

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
)

// Identity is the uniqueness key of a watched object within a batch.
// Two identities are equal when both namespace and name are equal.
type Identity struct {
	Namespace string
	Name      string
}

// IdentityOf returns the identity of obj.
func IdentityOf(obj *unstructured.Unstructured) Identity {
	return Identity{Namespace: obj.GetNamespace(), Name: obj.GetName()}
}

// String renders the identity as namespace/name.
func (i Identity) String() string {
	return i.NamespacedName().String()
}

// NamespacedName converts the identity to the apimachinery key type.
func (i Identity) NamespacedName() types.NamespacedName {
	return types.NamespacedName{Namespace: i.Namespace, Name: i.Name}
}

// Complete reports whether both namespace and name are set.
func (i Identity) Complete() bool {
	return i.Namespace != "" && i.Name != ""
}
