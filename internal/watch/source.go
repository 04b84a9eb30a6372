// Package watch fetches watch batches of custom resources and resolves their
// response bodies into records.
package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const sourceSubsystem = "WatchSource"

// timeoutGrace is added to the server-side watch timeout for the client deadline.
const timeoutGrace = 5 * time.Second

// Response is the raw result of one watch call.
type Response struct {
	Payload    []byte
	StatusCode int
}

// OK reports whether the call returned HTTP 200.
func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Err describes a non-200 response and is nil for HTTP 200. HTTP 410 yields an
// expired StatusError.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	message := fmt.Sprintf("API server returned HTTP %d", r.StatusCode)
	if r.StatusCode == http.StatusGone {
		return apierrors.NewResourceExpired(message)
	}
	return errors.New(message)
}

// IsExpired reports whether err says the requested resource version is no
// longer served. Retrying from the same version cannot succeed.
func IsExpired(err error) bool {
	return apierrors.IsResourceExpired(err) || apierrors.IsGone(err)
}

// Source returns one bounded watch batch of resourceType starting after resourceVersion.
type Source interface {
	Watch(ctx context.Context, resourceType, resourceVersion string) (Response, error)
}

// SourceOptions configures a KubernetesSource.
type SourceOptions struct {
	// Group is the API group of the watched resource, e.g. ran.openshift.io.
	Group string
	// Version is the API version of the watched resource, e.g. v1.
	Version string
	// TimeoutSeconds bounds each watch call on the server side.
	TimeoutSeconds int
}

// KubernetesSource watches cluster-scoped custom resource lists through the API server.
type KubernetesSource struct {
	client rest.Interface
	opts   SourceOptions
	logger logging.Logger
}

// NewKubernetesSource creates a watch source talking to the cluster described by config.
func NewKubernetesSource(config *rest.Config, opts SourceOptions, logger logging.Logger) (*KubernetesSource, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	return newKubernetesSource(clientset.Discovery().RESTClient(), opts, logger), nil
}

func newKubernetesSource(client rest.Interface, opts SourceOptions, logger logging.Logger) *KubernetesSource {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = 5
	}
	return &KubernetesSource{client: client, opts: opts, logger: logger}
}

// Watch issues a watch on /apis/{group}/{version}/{resourceType} across all namespaces.
//
// A response with a non-200 status is returned without error; callers must check
// Response.OK. An error is returned only when no HTTP status was obtained.
func (s *KubernetesSource) Watch(ctx context.Context, resourceType, resourceVersion string) (Response, error) {
	timeout := time.Duration(s.opts.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout+timeoutGrace)
	defer cancel()

	req := s.client.Get().
		AbsPath("/apis", s.opts.Group, s.opts.Version, resourceType).
		Param("watch", "true").
		Param("timeoutSeconds", strconv.Itoa(s.opts.TimeoutSeconds))
	if resourceVersion != "" {
		req = req.Param("resourceVersion", resourceVersion)
	}

	s.logger.Debug(sourceSubsystem, "Watching %s/%s %s from resourceVersion %q", s.opts.Group, s.opts.Version, resourceType, resourceVersion)

	var statusCode int
	result := req.Do(ctx).StatusCode(&statusCode)
	body, err := result.Raw()
	if statusCode == 0 {
		if err == nil {
			err = fmt.Errorf("no HTTP status received")
		}
		return Response{}, ztperrors.Transport("watch "+resourceType, err)
	}
	if err != nil && statusCode == http.StatusOK {
		return Response{}, ztperrors.Transport("watch "+resourceType, err)
	}

	s.logger.Debug(sourceSubsystem, "Watch %s returned status %d with %d bytes", resourceType, statusCode, len(body))
	return Response{Payload: body, StatusCode: statusCode}, nil
}

// FileSource replays a recorded watch response from disk. It always reports HTTP 200.
type FileSource struct {
	Path string
}

// Watch returns the file contents as the payload.
func (f FileSource) Watch(_ context.Context, resourceType, _ string) (Response, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Response{}, ztperrors.Transport("watch "+resourceType, fmt.Errorf("failed to read recorded payload: %w", err))
	}
	return Response{Payload: data, StatusCode: http.StatusOK}, nil
}
