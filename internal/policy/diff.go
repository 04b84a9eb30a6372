// Package policy computes and applies the minimal difference between the
// Policy objects a renderer produced and the Policy objects live in the cluster.
package policy

import (
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Kind is the kind compared by the reconciler.
const Kind = "Policy"

// GVK is the group/version/kind of generated policies.
var GVK = schema.GroupVersionKind{Group: "policy.open-cluster-management.io", Version: "v1", Kind: Kind}

// NamespacePlan is the diff of one namespace.
type NamespacePlan struct {
	Namespace string

	// Apply holds every required object of the namespace when at least one
	// required policy is missing, and nothing otherwise. Companion objects
	// such as ConfigMaps travel with the policies that reference them.
	Apply []*unstructured.Unstructured

	// Delete holds live policies no required policy matched.
	Delete []unstructured.Unstructured

	// Matched names required policies already present in the cluster.
	Matched []string

	// Missing names required policies absent from the cluster.
	Missing []string
}

// Empty reports whether the namespace needs no action.
func (p *NamespacePlan) Empty() bool {
	return len(p.Apply) == 0 && len(p.Delete) == 0
}

// Plan is the per-namespace diff of one batch.
type Plan struct {
	Namespaces map[string]*NamespacePlan
}

// Empty reports whether no namespace needs action.
func (p *Plan) Empty() bool {
	for _, ns := range p.Namespaces {
		if !ns.Empty() {
			return false
		}
	}
	return true
}

// SortedNamespaces returns the planned namespaces in lexical order.
func (p *Plan) SortedNamespaces() []string {
	names := make([]string, 0, len(p.Namespaces))
	for ns := range p.Namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Counts returns the totals of applied, deleted and matched objects.
func (p *Plan) Counts() (apply, del, matched int) {
	for _, ns := range p.Namespaces {
		apply += len(ns.Apply)
		del += len(ns.Delete)
		matched += len(ns.Matched)
	}
	return apply, del, matched
}

func isPolicy(obj *unstructured.Unstructured) bool {
	return obj.GetKind() == Kind
}

// Diff compares required objects with the live policies per namespace.
//
// For every required policy (namespace, name): a live policy of the same name
// in that namespace is a match and needs nothing. A required policy without a
// match causes every required object of its namespace to be applied. Live
// policies that no required policy matched are deleted.
//
// Namespaces present only in current are still diffed: all of their live
// policies are unmatched. Namespaces absent from current are treated as having
// no live policies. The caller bounds reconciliation scope by choosing which
// namespaces to put in current.
func Diff(required []*unstructured.Unstructured, current map[string][]unstructured.Unstructured) *Plan {
	plan := &Plan{Namespaces: make(map[string]*NamespacePlan)}
	get := func(ns string) *NamespacePlan {
		p, ok := plan.Namespaces[ns]
		if !ok {
			p = &NamespacePlan{Namespace: ns}
			plan.Namespaces[ns] = p
		}
		return p
	}

	requiredByNamespace := make(map[string][]*unstructured.Unstructured)
	wanted := make(map[string]map[string]bool)
	for _, obj := range required {
		ns := obj.GetNamespace()
		requiredByNamespace[ns] = append(requiredByNamespace[ns], obj)
		if !isPolicy(obj) {
			continue
		}
		if wanted[ns] == nil {
			wanted[ns] = make(map[string]bool)
		}
		wanted[ns][obj.GetName()] = true
	}

	// One pass over each live list builds the present-name set.
	present := make(map[string]map[string]bool, len(current))
	for ns, items := range current {
		names := make(map[string]bool, len(items))
		for _, item := range items {
			names[item.GetName()] = true
		}
		present[ns] = names
	}

	for ns, names := range wanted {
		p := get(ns)
		for _, name := range sortedSet(names) {
			if present[ns][name] {
				p.Matched = append(p.Matched, name)
			} else {
				p.Missing = append(p.Missing, name)
			}
		}
		if len(p.Missing) > 0 {
			p.Apply = append(p.Apply, requiredByNamespace[ns]...)
		}
	}

	for ns, items := range current {
		for _, item := range items {
			if wanted[ns][item.GetName()] {
				continue
			}
			p := get(ns)
			p.Delete = append(p.Delete, item)
		}
	}

	// Namespaces that were examined but need nothing are dropped to keep the plan minimal.
	for ns, p := range plan.Namespaces {
		if p.Empty() && len(p.Matched) == 0 {
			delete(plan.Namespaces, ns)
		}
	}
	return plan
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
