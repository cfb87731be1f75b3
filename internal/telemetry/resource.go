package telemetry

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	syncotel "github.com/stacklok/toolhive-assetsync/internal/otel"
)

// SyncTargetAttributes describe the bundle repository and data directory of the process.
// Credentials embedded in the remote URL are dropped.
func SyncTargetAttributes(remote, dataDir string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if remote != "" {
		attrs = append(attrs, syncotel.AttrRemote.String(redactRemote(remote)))
	}
	if dataDir != "" {
		attrs = append(attrs, syncotel.AttrDataDir.String(dataDir))
	}
	return attrs
}

func redactRemote(remote string) string {
	u, err := url.Parse(remote)
	if err != nil || u.User == nil {
		return remote
	}
	u.User = nil
	return u.String()
}

// newResource builds the resource shared by the tracer and meter providers.
// resource.New avoids schema URL conflicts with resource.Default().
func newResource(ctx context.Context, serviceName, serviceVersion string, extra []attribute.KeyValue) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	}, extra...)

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
