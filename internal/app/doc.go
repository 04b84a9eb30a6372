// Package app bootstraps the site watcher.
//
// NewApplication loads configuration, sets up logging and builds the batch
// processor with its collaborators. The application then runs either a single
// batch (RunOnce) or a supervision loop (Follow) that keeps running batches
// until interrupted.
//
// # Configuration Loading
//
// Configuration comes from config.yaml in the directory given by
// Config.ConfigPath, or ~/.config/sitewatcher when empty. Command line
// settings such as Debug and KeepStaged override the loaded values.
//
// # Collaborators
//
//   - Watch source: the API server, or a recorded payload file when
//     Config.PayloadFile is set
//   - Executor: controller-runtime client (api mode) or oc (cli mode)
//   - Renderer: kustomize with the policy generator plugin
//
// A cluster connection is only set up when a collaborator needs one, so a
// recorded payload can be replayed in cli mode without a kubeconfig.
package app
