package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// CommandError is returned when a CLI invocation fails. It carries the captured output.
type CommandError struct {
	Command []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed: %v", strings.Join(e.Command, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CLI implements Executor and FileExecutor by invoking oc or kubectl.
type CLI struct {
	binary string
	logger logging.Logger
}

// NewCLI creates an executor shelling out to binary ("oc" when empty).
func NewCLI(binary string, logger logging.Logger) (*CLI, error) {
	if binary == "" {
		binary = "oc"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%s command not found in PATH: %w", binary, err)
	}
	return newCLI(binary, logger), nil
}

func newCLI(binary string, logger logging.Logger) *CLI {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CLI{binary: binary, logger: logger}
}

func (c *CLI) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	command := append([]string{c.binary}, args...)
	c.logger.Debug(subsystem, "Running %s", strings.Join(command, " "))

	cmd := execCommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{
			Command: command,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		c.logger.Debug(subsystem, "%s", out)
	}
	return stdout.Bytes(), nil
}

// resourceArg returns the kind.group form accepted by oc and kubectl.
func resourceArg(gvk schema.GroupVersionKind) string {
	kind := strings.ToLower(gvk.Kind)
	if gvk.Group == "" {
		return kind
	}
	return kind + "." + gvk.Group
}

// ApplyFile runs "apply -f path".
func (c *CLI) ApplyFile(ctx context.Context, path string) error {
	if _, err := c.run(ctx, nil, "apply", "-f", path); err != nil {
		return ztperrors.Transport("apply "+path, err)
	}
	return nil
}

// Apply pipes obj into "apply -f -".
func (c *CLI) Apply(ctx context.Context, obj *unstructured.Unstructured) error {
	data, err := obj.MarshalJSON()
	if err != nil {
		return ztperrors.Data("apply "+Describe(obj), err)
	}
	if _, err := c.run(ctx, data, "apply", "-f", "-"); err != nil {
		return ztperrors.Transport("apply "+Describe(obj), err)
	}
	return nil
}

// Delete runs "delete --ignore-not-found <kind.group> <name>".
func (c *CLI) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	args := []string{"delete", "--ignore-not-found", resourceArg(obj.GroupVersionKind()), obj.GetName()}
	if ns := obj.GetNamespace(); ns != "" {
		args = append(args, "-n", ns)
	}
	if _, err := c.run(ctx, nil, args...); err != nil {
		return ztperrors.Transport("delete "+Describe(obj), err)
	}
	return nil
}

// List runs "get <kind.group> -n namespace -o json".
func (c *CLI) List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]unstructured.Unstructured, error) {
	op := fmt.Sprintf("list %s in %s", gvk.Kind, namespace)
	out, err := c.run(ctx, nil, "get", resourceArg(gvk), "-n", namespace, "-o", "json")
	if err != nil {
		return nil, ztperrors.Transport(op, err)
	}

	list := &unstructured.UnstructuredList{}
	if err := list.UnmarshalJSON(out); err != nil {
		return nil, ztperrors.Data(op, err)
	}
	return list.Items, nil
}
