package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"sitewatcher/internal/executor"
	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const subsystem = "PolicyReconciler"

// InputKind is the kind of watched object that defines a policy namespace.
const InputKind = "PolicyGenTemplate"

// Reconciler brings the Policy objects of a set of namespaces in line with
// the rendered output.
type Reconciler struct {
	executor    executor.Executor
	parallelism int
	logger      logging.Logger
}

// NewReconciler creates a Reconciler. Namespaces are processed with at most
// parallelism workers; values below one mean one.
func NewReconciler(ex executor.Executor, parallelism int, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Discard()
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Reconciler{executor: ex, parallelism: parallelism, logger: logger}
}

// Scope returns the distinct namespaces of the policy inputs in objs, sorted.
func Scope(objs []*unstructured.Unstructured) []string {
	seen := make(map[string]bool)
	for _, obj := range objs {
		if obj.GetKind() != InputKind || obj.GetNamespace() == "" {
			continue
		}
		seen[obj.GetNamespace()] = true
	}
	return sortedSet(seen)
}

// Current fetches the live policies of each namespace once.
func (r *Reconciler) Current(ctx context.Context, namespaces []string) (map[string][]unstructured.Unstructured, error) {
	var mu sync.Mutex
	current := make(map[string][]unstructured.Unstructured, len(namespaces))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, ns := range namespaces {
		g.Go(func() error {
			items, err := r.executor.List(ctx, GVK, ns)
			if err != nil {
				return ztperrors.Reconciliation("list policies", fmt.Errorf("namespace %s: %w", ns, err))
			}
			r.logger.Debug(subsystem, "Namespace %s has %d live policies", ns, len(items))

			mu.Lock()
			current[ns] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return current, nil
}

// Execute carries out plan. Each namespace applies before it deletes; the first
// failure cancels namespaces that have not finished.
func (r *Reconciler) Execute(ctx context.Context, plan *Plan) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, ns := range plan.SortedNamespaces() {
		p := plan.Namespaces[ns]
		g.Go(func() error {
			return r.executeNamespace(ctx, p)
		})
	}
	return g.Wait()
}

func (r *Reconciler) executeNamespace(ctx context.Context, p *NamespacePlan) error {
	for _, name := range p.Matched {
		r.logger.Debug(subsystem, "Policy %s/%s already present", p.Namespace, name)
	}
	if len(p.Missing) > 0 {
		r.logger.Info(subsystem, "Namespace %s is missing policies %v, applying %d objects", p.Namespace, p.Missing, len(p.Apply))
	}

	for _, obj := range p.Apply {
		if err := r.executor.Apply(ctx, obj); err != nil {
			return ztperrors.Reconciliation("apply", fmt.Errorf("%s: %w", executor.Describe(obj), err))
		}
	}

	for i := range p.Delete {
		obj := &p.Delete[i]
		r.logger.Info(subsystem, "Deleting stale policy %s/%s", p.Namespace, obj.GetName())
		if err := r.executor.Delete(ctx, obj); err != nil {
			return ztperrors.Reconciliation("delete", fmt.Errorf("%s: %w", executor.Describe(obj), err))
		}
	}
	return nil
}

// Reconcile fetches the live policies of scope, diffs them against required and
// executes the result.
func (r *Reconciler) Reconcile(ctx context.Context, scope []string, required []*unstructured.Unstructured) (*Plan, error) {
	current, err := r.Current(ctx, scope)
	if err != nil {
		return nil, err
	}

	plan := Diff(required, current)
	apply, del, matched := plan.Counts()
	r.logger.Info(subsystem, "Reconciling %d namespaces: %d to apply, %d to delete, %d unchanged",
		len(plan.Namespaces), apply, del, matched)

	if err := r.Execute(ctx, plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// ReconcileDir is Reconcile over every manifest rendered below dir.
func (r *Reconciler) ReconcileDir(ctx context.Context, scope []string, dir string) (*Plan, error) {
	required, err := executor.ReadManifestDir(dir)
	if err != nil {
		return nil, ztperrors.Reconciliation("read rendered output", err)
	}
	sort.SliceStable(required, func(i, j int) bool {
		return required[i].GetNamespace() < required[j].GetNamespace()
	})
	return r.Reconcile(ctx, scope, required)
}
