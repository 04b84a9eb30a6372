// Package config loads the site watcher configuration.
//
// Configuration lives in a single directory holding config.yaml. The default
// directory is ~/.config/sitewatcher; commands accept --config-path to point
// elsewhere. A missing config.yaml is not an error: the defaults apply.
//
// # Example
//
//	watch:
//	  group: ran.openshift.io
//	  version: v1
//	  timeoutSeconds: 5
//	  pollInterval: 10s
//	staging:
//	  dir: /var/tmp
//	  keep: false
//	renderer:
//	  command: kustomize
//	  args: [build, --enable-alpha-plugins]
//	  workDir: /tmp/cnf-features-deploy/ztp/ztp-policy-generator
//	  sourceLibraryDir: /usr/src/hook/source-crs
//	  pluginConfigFile: policyGenerator.yaml
//	executor:
//	  mode: cli
//	  binary: oc
//	reconcile:
//	  parallelism: 4
//	logLevel: info
package config
