package remoteresource

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Client is the subset of a socket.io connection the resource needs.
type Client interface {
	Emit(event string, data any)
	On(event string, fn func(...any))
	Disconnect()
}

// DialConfig holds the connection settings of a remote resource.
type DialConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

type socketClient struct {
	io *socket.Socket
}

func (c *socketClient) Emit(event string, data any) { c.io.Emit(event, data) }

func (c *socketClient) On(event string, fn func(...any)) {
	c.io.On(types.EventName(event), func(args ...any) { fn(args...) })
}

func (c *socketClient) Disconnect() { c.io.Disconnect() }

// Dial connects to a workflow server over socket.io (websocket transport).
func Dial(ctx context.Context, cfg DialConfig) (Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL)
	logger.Info("Connecting to workflow server...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &socketClient{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}
}
