// Package batch sequences one watch batch end to end.
//
// A batch fetches one bounded watch window, stages the changed objects,
// renders and reconciles the updates, then cascades the deletions. Each batch
// owns a private staging area that is destroyed when the batch returns.
//
// Processor runs a single batch. Loop re-runs batches from the last observed
// resource version until its context is cancelled.
package batch
