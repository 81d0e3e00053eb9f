package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/capsulrun/internal/studyconfig"
	"github.com/vk/capsulrun/internal/workflow"
	"github.com/vk/capsulrun/internal/workflow/localresource"
	"github.com/vk/capsulrun/internal/workflow/remoteresource"
)

// ControllerFactory opens the workflow controller of a computing resource.
type ControllerFactory func(ctx context.Context, resourceID string, rc *studyconfig.ResourceConfig) (workflow.Controller, error)

// ResourceOptions configure the controllers built by NewControllerFactory.
type ResourceOptions struct {
	// DatabasePath is the SQLite file of the local workflow database.
	DatabasePath string
	Workers      int
	Runner       localresource.Runner

	DialTimeout    time.Duration
	RequestTimeout time.Duration
	Insecure       bool
}

// NewControllerFactory returns a factory opening the local resource for
// localhost and a socket.io connection for any other resource.
func NewControllerFactory(opts ResourceOptions) ControllerFactory {
	return func(ctx context.Context, resourceID string, rc *studyconfig.ResourceConfig) (workflow.Controller, error) {
		if resourceID == localresource.ResourceID && rc.Endpoint == "" {
			return localresource.Open(opts.DatabasePath, opts.Runner, opts.Workers)
		}
		if rc.Endpoint == "" {
			return nil, fmt.Errorf("no endpoint configured for computing resource %q", resourceID)
		}
		client, err := remoteresource.Dial(ctx, remoteresource.DialConfig{
			URL:                rc.Endpoint,
			Namespace:          rc.Namespace,
			InsecureSkipVerify: opts.Insecure,
			Timeout:            opts.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		creds := remoteresource.Credentials{Login: rc.Login, Password: rc.Password, RSAKeyPass: rc.RSAKeyPass}
		return remoteresource.New(resourceID, client, creds, opts.RequestTimeout), nil
	}
}
