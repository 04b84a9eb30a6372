// Package render runs the external policy generator over a directory of
// staged manifests.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/Masterminds/sprig/v3"

	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const subsystem = "Renderer"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Renderer turns the manifests of inputDir into generated manifests in outputDir.
type Renderer interface {
	Render(ctx context.Context, inputDir, outputDir string) error
}

// Options configures a Kustomize renderer.
type Options struct {
	// Command is the renderer binary, normally kustomize.
	Command string
	// Args are the renderer arguments, e.g. build --enable-alpha-plugins.
	Args []string
	// WorkDir holds the kustomization that references the plugin config.
	// It is also used as XDG_CONFIG_HOME so kustomize finds the plugin.
	WorkDir string
	// SourceLibraryDir holds the source policy library the generator reads.
	SourceLibraryDir string
	// PluginConfigFile is the name of the generator config written into WorkDir.
	PluginConfigFile string
}

// Folder is one input/output pair handed to the generator.
type Folder struct {
	Input  string
	Output string
}

const pluginConfigTemplate = `{{- range $i, $f := .Folders }}
---
apiVersion: policyGenerator/v1
kind: PolicyGenerator
metadata:
  name: {{ printf "sitewatcher-%d" $i }}
argsOneLiner: {{ list $f.Input $.SourceLibraryDir $f.Output "false" | join " " | quote }}
{{- end }}
`

// Kustomize renders through kustomize and the policy generator exec plugin.
type Kustomize struct {
	opts   Options
	tmpl   *template.Template
	logger logging.Logger
}

// NewKustomize creates a Kustomize renderer.
func NewKustomize(opts Options, logger logging.Logger) (*Kustomize, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Command == "" {
		opts.Command = "kustomize"
	}
	if opts.PluginConfigFile == "" {
		opts.PluginConfigFile = "policyGenerator.yaml"
	}
	tmpl, err := template.New("plugin").Funcs(sprig.TxtFuncMap()).Parse(pluginConfigTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plugin config template: %w", err)
	}
	return &Kustomize{opts: opts, tmpl: tmpl, logger: logger}, nil
}

// PluginConfig renders the generator config for folders.
// The generator splits argsOneLiner on whitespace, so every field must be
// non-empty and free of spaces.
func (k *Kustomize) PluginConfig(folders []Folder) ([]byte, error) {
	if err := oneLinerField("source library directory", k.opts.SourceLibraryDir); err != nil {
		return nil, err
	}
	for _, f := range folders {
		if err := oneLinerField("input directory", f.Input); err != nil {
			return nil, err
		}
		if err := oneLinerField("output directory", f.Output); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	err := k.tmpl.Execute(&buf, map[string]interface{}{
		"Folders":          folders,
		"SourceLibraryDir": k.opts.SourceLibraryDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render plugin config: %w", err)
	}
	return buf.Bytes(), nil
}

func oneLinerField(name, value string) error {
	if value == "" {
		return ztperrors.ExternalTool("render", fmt.Errorf("%s is not configured", name))
	}
	if strings.ContainsFunc(value, unicode.IsSpace) {
		return ztperrors.ExternalTool("render", fmt.Errorf("%s %q must not contain whitespace", name, value))
	}
	return nil
}

// Render writes the plugin config for inputDir and outputDir and runs the renderer.
// Any output on stderr fails the render, whatever the exit status.
func (k *Kustomize) Render(ctx context.Context, inputDir, outputDir string) error {
	if k.opts.WorkDir == "" {
		return ztperrors.ExternalTool("render", fmt.Errorf("renderer work directory is not configured"))
	}
	if err := os.MkdirAll(outputDir, 0o700); err != nil {
		return fmt.Errorf("failed to create render output directory: %w", err)
	}

	config, err := k.PluginConfig([]Folder{{Input: inputDir, Output: outputDir}})
	if err != nil {
		return err
	}
	configPath := filepath.Join(k.opts.WorkDir, k.opts.PluginConfigFile)
	if err := os.WriteFile(configPath, config, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	k.logger.Debug(subsystem, "Wrote %s:\n%s", configPath, config)

	cmd := execCommandContext(ctx, k.opts.Command, k.opts.Args...)
	cmd.Dir = k.opts.WorkDir
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(env, "XDG_CONFIG_HOME="+k.opts.WorkDir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	line := strings.Join(append([]string{k.opts.Command}, k.opts.Args...), " ")
	k.logger.Debug(subsystem, "Running %s in %s", line, k.opts.WorkDir)

	runErr := cmd.Run()
	if diag := strings.TrimSpace(stderr.String()); diag != "" {
		return ztperrors.ExternalTool("render", fmt.Errorf("%s reported: %s", line, diag))
	}
	if runErr != nil {
		return ztperrors.ExternalTool("render", fmt.Errorf("%s failed: %w", line, runErr))
	}
	if stdout.Len() > 0 {
		k.logger.Debug(subsystem, "Renderer output:\n%s", stdout.String())
	}
	k.logger.Info(subsystem, "Rendered %s into %s", inputDir, outputDir)
	return nil
}
