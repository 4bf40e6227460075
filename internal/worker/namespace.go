package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"google.golang.org/protobuf/types/known/durationpb"
)

const (
	Namespace = "default"
	retention = 72 * time.Hour
)

// EnsureNamespace registers the namespace the worker runs in. One that already
// exists is left as it is.
func EnsureNamespace(ctx context.Context, cli workflowservice.WorkflowServiceClient, namespace string) error {
	_, err := cli.RegisterNamespace(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(retention),
	})
	var alreadyErr *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &alreadyErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error registering namespace %s: %s", namespace, err)
	}

	return nil
}
