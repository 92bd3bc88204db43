// Package dockerclient wraps the Docker SDK client behind the narrow
// interface the image builder needs.
package dockerclient

//go:generate mockgen -destination=mock_dockerclient.go -package=dockerclient . DockerClient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
)

// DockerClient is the subset of the Docker Engine API used by elver.
// *client.Client satisfies it.
type DockerClient interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	Ping(ctx context.Context) (types.Ping, error)
	Close() error
}

// Options configures how the engine is reached. Zero values fall back to
// the DOCKER_HOST, DOCKER_TLS_VERIFY and DOCKER_CERT_PATH environment.
type Options struct {
	Host      string // e.g. unix:///var/run/docker.sock, tcp://build-host:2376
	CertPath  string // directory holding ca.pem, cert.pem and key.pem
	TLSVerify bool
}

// New creates a Docker client with API version negotiation enabled.
func New(opts Options) (DockerClient, error) {
	clientOpts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	if opts.CertPath != "" {
		httpClient, err := tlsHTTPClient(opts.CertPath, opts.TLSVerify)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, client.WithHTTPClient(httpClient))
	}

	// Host goes last: WithHTTPClient replaces the transport the host was
	// configured on.
	switch {
	case opts.Host != "":
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	case opts.CertPath != "":
		clientOpts = append(clientOpts, client.WithHostFromEnv())
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return cli, nil
}

func tlsHTTPClient(certPath string, verify bool) (*http.Client, error) {
	tlsConfig, err := tlsconfig.Client(tlsconfig.Options{
		CAFile:             filepath.Join(certPath, "ca.pem"),
		CertFile:           filepath.Join(certPath, "cert.pem"),
		KeyFile:            filepath.Join(certPath, "key.pem"),
		InsecureSkipVerify: !verify,
	})
	if err != nil {
		return nil, fmt.Errorf("loading docker TLS config from %s: %w", certPath, err)
	}

	return &http.Client{
		Transport:     &http.Transport{TLSClientConfig: tlsConfig},
		CheckRedirect: client.CheckRedirect,
	}, nil
}

// Ping checks if the Docker daemon is accessible.
func Ping(ctx context.Context, cli DockerClient) (types.Ping, error) {
	ping, err := cli.Ping(ctx)
	if err != nil {
		return types.Ping{}, fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return ping, nil
}
