package batch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"sitewatcher/internal/cascade"
	"sitewatcher/internal/classifier"
	"sitewatcher/internal/executor"
	"sitewatcher/internal/manifest"
	"sitewatcher/internal/policy"
	"sitewatcher/internal/render"
	"sitewatcher/internal/watch"
	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const subsystem = "Batch"

// PolicyInputs is the resource type whose rendered output is reconciled per
// namespace instead of being applied wholesale.
const PolicyInputs = "policygentemplates"

// renderedDir is the staging sub-directory receiving renderer output.
const renderedDir = "rendered"

// Dependencies are the collaborators of a Processor.
type Dependencies struct {
	Source     watch.Source
	Renderer   render.Renderer
	Executor   executor.Executor
	Reconciler *policy.Reconciler
	Metrics    *Metrics
}

// Options configures a Processor.
type Options struct {
	// StagingDir is the parent of per-batch staging areas, os.TempDir() when empty.
	StagingDir string
	// KeepStaged retains the staging area after the batch for inspection.
	KeepStaged bool
}

// Processor runs watch batches.
type Processor struct {
	deps   Dependencies
	opts   Options
	logger logging.Logger
}

// NewProcessor creates a Processor. A nil Reconciler is replaced by one
// using deps.Executor with a single worker.
func NewProcessor(deps Dependencies, opts Options, logger logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	if deps.Reconciler == nil {
		deps.Reconciler = policy.NewReconciler(deps.Executor, 1, logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	return &Processor{deps: deps, opts: opts, logger: logger}
}

// Metrics returns the metrics the processor records into.
func (p *Processor) Metrics() *Metrics {
	return p.deps.Metrics
}

// Process runs one batch of resourceType starting after resourceVersion.
//
// The returned report is never nil. On success its ResourceVersion is the
// version the next batch should start from. On failure the batch stops at the
// first error; the caller is expected to retry from the same resourceVersion.
func (p *Processor) Process(ctx context.Context, resourceVersion, resourceType string) (*Report, error) {
	report := &Report{
		BatchID:         uuid.NewString(),
		ResourceType:    resourceType,
		StartVersion:    resourceVersion,
		ResourceVersion: resourceVersion,
	}
	log := p.logger.With("batch", report.BatchID)
	started := time.Now()

	p.deps.Metrics.RecordAttempt(resourceType)
	err := p.process(ctx, log, report)
	report.Duration = time.Since(started)

	if err != nil {
		p.deps.Metrics.RecordFailure(resourceType, err)
		log.Error(subsystem, err, "Batch of %s from resourceVersion %q failed", resourceType, resourceVersion)
		return report, err
	}
	p.deps.Metrics.RecordSuccess(resourceType, report)
	log.Info(subsystem, "Batch of %s finished in %s: %d updates, %d deletes, next resourceVersion %q",
		resourceType, report.Duration.Round(time.Millisecond), report.Updates, report.Deletes, report.ResourceVersion)
	return report, nil
}

func (p *Processor) process(ctx context.Context, log logging.Logger, report *Report) error {
	resp, err := p.deps.Source.Watch(ctx, report.ResourceType, report.StartVersion)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return ztperrors.Transport("watch "+report.ResourceType, err)
	}

	payload := watch.ParsePayload(resp.Payload)
	log.Debug(subsystem, "Watch returned %s payload with %d records", payload.Kind, len(payload.Records))
	if payload.Kind == watch.PayloadEmpty {
		log.Info(subsystem, "No changes to %s since resourceVersion %q", report.ResourceType, report.StartVersion)
		return nil
	}

	store, err := manifest.NewStore(p.opts.StagingDir, p.opts.KeepStaged, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Release(); err != nil {
			log.Warn(subsystem, "Failed to release staging area: %v", err)
		}
	}()
	report.StagingDir = store.Root()

	result, err := classifier.New(store, log).Classify(payload)
	if err != nil {
		return err
	}
	report.Updates = len(result.Updates)
	report.Deletes = len(result.Deletes)
	report.Conflicts = len(result.Conflicts)
	if result.ResourceVersion != "" {
		report.ResourceVersion = result.ResourceVersion
	}

	if len(result.Updates) > 0 {
		if err := p.update(ctx, log, store, result, report); err != nil {
			return err
		}
	}

	if len(result.Deletes) > 0 {
		handler := cascade.New(p.deps.Executor, store, log)
		cascaded, err := handler.Process(ctx, store.List(manifest.BucketDelete))
		report.Cascaded = cascaded
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) update(ctx context.Context, log logging.Logger, store *manifest.Store, result *classifier.Result, report *Report) error {
	out := filepath.Join(store.Root(), renderedDir)
	if err := p.deps.Renderer.Render(ctx, store.Dir(manifest.BucketUpdate), out); err != nil {
		return err
	}

	if report.ResourceType != PolicyInputs {
		n, err := executor.ApplyDir(ctx, p.deps.Executor, out)
		report.AppliedFiles = n
		if err != nil {
			return err
		}
		log.Info(subsystem, "Applied %d rendered manifests", n)
		return nil
	}

	inputs := make([]*unstructured.Unstructured, 0, len(result.Updates))
	for _, id := range result.SortedUpdates() {
		obj, err := store.Read(result.Updates[id])
		if err != nil {
			return err
		}
		inputs = append(inputs, obj)
	}

	plan, err := p.deps.Reconciler.ReconcileDir(ctx, policy.Scope(inputs), out)
	if plan != nil {
		report.AddPlan(plan)
	}
	return err
}
