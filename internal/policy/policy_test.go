package policy

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"sitewatcher/internal/executor"
	"sitewatcher/internal/ztperrors"
)

func object(kind, namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	switch kind {
	case Kind:
		obj.SetGroupVersionKind(GVK)
	default:
		obj.SetAPIVersion("v1")
		obj.SetKind(kind)
	}
	obj.SetNamespace(namespace)
	obj.SetName(name)
	return obj
}

func live(namespace string, names ...string) []unstructured.Unstructured {
	var items []unstructured.Unstructured
	for _, name := range names {
		items = append(items, *object(Kind, namespace, name))
	}
	return items
}

func names(objs []*unstructured.Unstructured) []string {
	var out []string
	for _, o := range objs {
		out = append(out, o.GetKind()+"/"+o.GetName())
	}
	sort.Strings(out)
	return out
}

// fakeExecutor records calls and serves List from a fixed map.
type fakeExecutor struct {
	mu      sync.Mutex
	live    map[string][]unstructured.Unstructured
	listErr error
	applied []string
	deleted []string
	lists   map[string]int
}

func newFakeExecutor(live map[string][]unstructured.Unstructured) *fakeExecutor {
	return &fakeExecutor{live: live, lists: map[string]int{}}
}

func (f *fakeExecutor) Apply(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, executor.Describe(obj))
	return nil
}

func (f *fakeExecutor) Delete(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, executor.Describe(obj))
	return nil
}

func (f *fakeExecutor) List(_ context.Context, gvk schema.GroupVersionKind, namespace string) ([]unstructured.Unstructured, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lists[namespace]++
	return f.live[namespace], nil
}

func TestReconcile_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		required    []*unstructured.Unstructured
		live        map[string][]unstructured.Unstructured
		wantApplied []string
		wantDeleted []string
	}{
		{
			name: "missing policy applies policy and companion config map",
			required: []*unstructured.Unstructured{
				object(Kind, "ns1", "p1"),
				object("ConfigMap", "ns1", "cm1"),
			},
			live:        map[string][]unstructured.Unstructured{"ns1": {}},
			wantApplied: []string{"ConfigMap/ns1/cm1", "Policy/ns1/p1"},
		},
		{
			name:        "stale policy is deleted and nothing applied",
			required:    []*unstructured.Unstructured{object(Kind, "ns1", "p1")},
			live:        map[string][]unstructured.Unstructured{"ns1": live("ns1", "p1", "stale")},
			wantDeleted: []string{"Policy/ns1/stale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newFakeExecutor(tt.live)
			r := NewReconciler(ex, 2, nil)

			plan, err := r.Reconcile(context.Background(), []string{"ns1"}, tt.required)
			require.NoError(t, err)

			sort.Strings(ex.applied)
			assert.Equal(t, tt.wantApplied, ex.applied)
			assert.Equal(t, tt.wantDeleted, ex.deleted)

			apply, del, _ := plan.Counts()
			assert.Equal(t, len(tt.wantApplied), apply)
			assert.Equal(t, len(tt.wantDeleted), del)
		})
	}
}

func TestDiff_MissingPolicyAppliesWholeNamespace(t *testing.T) {
	required := []*unstructured.Unstructured{
		object(Kind, "X", "P1"),
		object(Kind, "X", "P2"),
		object("ConfigMap", "X", "cm"),
	}
	current := map[string][]unstructured.Unstructured{"X": live("X", "P1", "P3")}

	plan := Diff(required, current)

	require.Contains(t, plan.Namespaces, "X")
	x := plan.Namespaces["X"]
	assert.Equal(t, []string{"ConfigMap/cm", "Policy/P1", "Policy/P2"}, names(x.Apply))
	require.Len(t, x.Delete, 1)
	assert.Equal(t, "P3", x.Delete[0].GetName())
	assert.Equal(t, []string{"P1"}, x.Matched)
	assert.Equal(t, []string{"P2"}, x.Missing)
}

func TestDiff_InSyncNamespaceIsUntouched(t *testing.T) {
	required := []*unstructured.Unstructured{
		object(Kind, "Y", "P1"),
		object("ConfigMap", "Y", "cm"),
	}
	current := map[string][]unstructured.Unstructured{"Y": live("Y", "P1")}

	plan := Diff(required, current)

	assert.True(t, plan.Empty())
	apply, del, matched := plan.Counts()
	assert.Zero(t, apply)
	assert.Zero(t, del)
	assert.Equal(t, 1, matched)
}

func TestDiff_NamespaceWithoutLivePolicies(t *testing.T) {
	required := []*unstructured.Unstructured{object(Kind, "new", "P1")}

	plan := Diff(required, map[string][]unstructured.Unstructured{})

	require.Contains(t, plan.Namespaces, "new")
	assert.Equal(t, []string{"Policy/P1"}, names(plan.Namespaces["new"].Apply))
}

func TestDiff_ScopedNamespaceWithNoRequiredPolicies(t *testing.T) {
	current := map[string][]unstructured.Unstructured{"Z": live("Z", "old1", "old2")}

	plan := Diff(nil, current)

	require.Contains(t, plan.Namespaces, "Z")
	assert.Empty(t, plan.Namespaces["Z"].Apply)
	assert.Len(t, plan.Namespaces["Z"].Delete, 2)
}

func TestDiff_SameNameInOtherNamespaceDoesNotMatch(t *testing.T) {
	required := []*unstructured.Unstructured{object(Kind, "A", "P1")}
	current := map[string][]unstructured.Unstructured{
		"A": nil,
		"B": live("B", "P1"),
	}

	plan := Diff(required, current)

	assert.Equal(t, []string{"P1"}, plan.Namespaces["A"].Missing)
	require.Len(t, plan.Namespaces["B"].Delete, 1)
}

func TestDiff_Idempotent(t *testing.T) {
	required := []*unstructured.Unstructured{
		object(Kind, "X", "P1"),
		object(Kind, "X", "P2"),
		object("ConfigMap", "X", "cm"),
	}
	current := map[string][]unstructured.Unstructured{"X": live("X", "P1", "P3")}

	first := Diff(required, current)

	// Simulate the cluster after executing the first plan.
	after := map[string][]unstructured.Unstructured{}
	for ns, p := range first.Namespaces {
		deleted := map[string]bool{}
		for _, d := range p.Delete {
			deleted[d.GetName()] = true
		}
		seen := map[string]bool{}
		for _, item := range current[ns] {
			if !deleted[item.GetName()] {
				after[ns] = append(after[ns], item)
				seen[item.GetName()] = true
			}
		}
		for _, obj := range p.Apply {
			if obj.GetKind() == Kind && !seen[obj.GetName()] {
				after[ns] = append(after[ns], *obj)
			}
		}
	}

	second := Diff(required, after)
	assert.True(t, second.Empty())
}

func TestScope(t *testing.T) {
	inputs := []*unstructured.Unstructured{
		object(InputKind, "ztp-site", "a"),
		object(InputKind, "ztp-common", "b"),
		object(InputKind, "ztp-site", "c"),
		object("SiteConfig", "other", "d"),
	}
	assert.Equal(t, []string{"ztp-common", "ztp-site"}, Scope(inputs))
}

func TestReconciler_Reconcile(t *testing.T) {
	fake := newFakeExecutor(map[string][]unstructured.Unstructured{
		"X":     live("X", "P1", "P3"),
		"Y":     live("Y", "P1"),
		"other": live("other", "keep-me"),
	})
	r := NewReconciler(fake, 4, nil)

	required := []*unstructured.Unstructured{
		object(Kind, "X", "P1"),
		object(Kind, "X", "P2"),
		object(Kind, "Y", "P1"),
	}
	plan, err := r.Reconcile(context.Background(), []string{"X", "Y"}, required)
	require.NoError(t, err)

	sort.Strings(fake.applied)
	assert.Equal(t, []string{"Policy/X/P1", "Policy/X/P2"}, fake.applied)
	assert.Equal(t, []string{"Policy/X/P3"}, fake.deleted)

	// Each scoped namespace is listed exactly once; out-of-scope ones never.
	assert.Equal(t, map[string]int{"X": 1, "Y": 1}, fake.lists)

	apply, del, matched := plan.Counts()
	assert.Equal(t, 2, apply)
	assert.Equal(t, 1, del)
	assert.Equal(t, 2, matched)
}

func TestReconciler_ListFailureIsReconciliationError(t *testing.T) {
	fake := newFakeExecutor(nil)
	fake.listErr = errors.New("connection refused")
	r := NewReconciler(fake, 1, nil)

	_, err := r.Reconcile(context.Background(), []string{"X"}, []*unstructured.Unstructured{object(Kind, "X", "P1")})
	require.Error(t, err)
	assert.Equal(t, ztperrors.KindReconciliation, ztperrors.KindOf(err))
	assert.Empty(t, fake.applied)
}
