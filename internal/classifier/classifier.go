// Package classifier turns one watch batch into disjoint delete and update sets
// of staged object snapshots.
package classifier

import (
	"fmt"
	"sort"
	"strconv"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"sitewatcher/internal/manifest"
	"sitewatcher/internal/watch"
	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const subsystem = "Classifier"

// Stager persists snapshots into a bucket and removes them again.
type Stager interface {
	Stage(id manifest.Identity, obj *unstructured.Unstructured, b manifest.Bucket) (string, error)
	Remove(path string) error
}

// Result holds the classified snapshots of one batch.
// An identity never appears in both Deletes and Updates.
type Result struct {
	// Deletes maps identities of deleted objects to their staged paths.
	Deletes map[manifest.Identity]string
	// Updates maps identities of added or modified objects to their staged paths.
	Updates map[manifest.Identity]string
	// Kinds records the kind of every staged identity.
	Kinds map[manifest.Identity]string
	// Conflicts lists identities dropped from the update set because they were
	// also deleted in the same batch.
	Conflicts []manifest.Identity
	// ResourceVersion is the newest resource version observed in the batch, or
	// empty if the batch carried none.
	ResourceVersion string
}

// Empty reports whether nothing was staged.
func (r *Result) Empty() bool {
	return len(r.Deletes) == 0 && len(r.Updates) == 0
}

// SortedUpdates returns the update identities in namespace/name order.
func (r *Result) SortedUpdates() []manifest.Identity {
	return sortedKeys(r.Updates)
}

// SortedDeletes returns the delete identities in namespace/name order.
func (r *Result) SortedDeletes() []manifest.Identity {
	return sortedKeys(r.Deletes)
}

func sortedKeys(m map[manifest.Identity]string) []manifest.Identity {
	ids := make([]manifest.Identity, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Namespace != ids[j].Namespace {
			return ids[i].Namespace < ids[j].Namespace
		}
		return ids[i].Name < ids[j].Name
	})
	return ids
}

// Classifier stages watch events and resolves delete/update conflicts.
type Classifier struct {
	stager Stager
	logger logging.Logger
}

// New creates a Classifier staging into stager.
func New(stager Stager, logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Classifier{stager: stager, logger: logger}
}

// Classify decodes every record of payload, stages each object into the delete
// or update bucket, and drops update entries whose identity is also deleted.
//
// Decoding is all-or-nothing: one malformed record fails the batch before
// anything is staged.
func (c *Classifier) Classify(payload watch.Payload) (*Result, error) {
	result := &Result{
		Deletes: make(map[manifest.Identity]string),
		Updates: make(map[manifest.Identity]string),
		Kinds:   make(map[manifest.Identity]string),
	}

	if payload.Kind == watch.PayloadEmpty {
		c.logger.Debug(subsystem, "Empty watch payload, nothing to classify")
		return result, nil
	}

	events := make([]watch.Event, 0, len(payload.Records))
	for i, record := range payload.Records {
		ev, err := watch.DecodeEvent(record)
		if err != nil {
			return nil, ztperrors.Data(fmt.Sprintf("decode watch record %d", i), err)
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		result.ResourceVersion = newerResourceVersion(result.ResourceVersion, ev.Object.GetResourceVersion())

		switch ev.Type {
		case watch.Bookmark:
			continue
		case watch.Error:
			return nil, ztperrors.Transport("watch stream", watchStreamError(ev.Object))
		}

		manifest.PruneServerFields(ev.Object)
		id := manifest.IdentityOf(ev.Object)
		if !id.Complete() {
			return nil, ztperrors.Data("classify event", fmt.Errorf("%s %s event is missing metadata.namespace or metadata.name", ev.Type, ev.Object.GetKind()))
		}

		bucket, entries := manifest.BucketUpdate, result.Updates
		if ev.Type == watch.Deleted {
			bucket, entries = manifest.BucketDelete, result.Deletes
		}

		path, err := c.stager.Stage(id, ev.Object, bucket)
		if err != nil {
			return nil, err
		}

		// A later event for the same identity and bucket supersedes the earlier snapshot.
		if previous, ok := entries[id]; ok {
			if err := c.stager.Remove(previous); err != nil {
				return nil, err
			}
			c.logger.Debug(subsystem, "Superseded %s snapshot of %s", bucket, id)
		}
		entries[id] = path
		result.Kinds[id] = ev.Object.GetKind()
	}

	// Deletion wins: an object slated for deletion is never re-applied in the same batch.
	for id := range result.Deletes {
		path, ok := result.Updates[id]
		if !ok {
			continue
		}
		if err := c.stager.Remove(path); err != nil {
			return nil, err
		}
		delete(result.Updates, id)
		result.Conflicts = append(result.Conflicts, id)
		c.logger.Info(subsystem, "Dropped update of %s, it is deleted in the same batch", id)
	}

	c.logger.Debug(subsystem, "Objects to delete: %v", result.SortedDeletes())
	c.logger.Debug(subsystem, "Objects to create/update: %v", result.SortedUpdates())
	return result, nil
}

// newerResourceVersion returns the newer of two opaque resource versions.
// Versions that both parse as integers are compared numerically; otherwise the
// most recently seen non-empty value wins.
func newerResourceVersion(current, candidate string) string {
	if candidate == "" {
		return current
	}
	if current == "" {
		return candidate
	}
	a, errA := strconv.ParseUint(current, 10, 64)
	b, errB := strconv.ParseUint(candidate, 10, 64)
	if errA == nil && errB == nil && a > b {
		return current
	}
	return candidate
}

func watchStreamError(status *unstructured.Unstructured) error {
	message, _, _ := unstructured.NestedString(status.Object, "message")
	reason, _, _ := unstructured.NestedString(status.Object, "reason")
	code, _, _ := unstructured.NestedInt64(status.Object, "code")
	if message == "" {
		message = "watch stream reported an error"
	}
	statusErr := &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Message: message,
		Reason:  metav1.StatusReason(reason),
		Code:    int32(code),
	}}
	return fmt.Errorf("%w (reason=%s, code=%d)", statusErr, reason, code)
}
