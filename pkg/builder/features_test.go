package builder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"go.uber.org/mock/gomock"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
)

func TestCheckFeatures_NoGatedOptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	// No EXPECT: the engine must not be pinged

	cfg := config.BuildConfig{NoCache: true, Pull: true, BuildArgs: map[string]string{"A": "1"}}
	if err := New(mock, nil).checkFeatures(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckFeatures(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.BuildConfig
		apiVer    string
		wantError string
	}{
		{"target on new engine", config.BuildConfig{Target: "runtime"}, "1.29", ""},
		{"target on old engine", config.BuildConfig{Target: "runtime"}, "1.28", "target"},
		{"cache-from on old engine", config.BuildConfig{CacheFrom: []string{"a"}}, "1.24", "cache-from"},
		{"extra-hosts on old engine", config.BuildConfig{ExtraHosts: map[string]string{"a": "1.2.3.4"}}, "1.26", "extra-hosts"},
		{"platform on old engine", config.BuildConfig{Platform: "linux/amd64"}, "1.31", "platform"},
		{"shmsize on old engine", config.BuildConfig{ShmSize: 1024}, "1.21", "shmsize"},
		{"vcs labels on old engine", config.BuildConfig{VCSLabels: true}, "1.22", "labels"},
		{"network mode on current engine", config.BuildConfig{NetworkMode: "host"}, "1.47", ""},
		{"unreported version", config.BuildConfig{Target: "runtime"}, "", ""},
		{"unparseable version", config.BuildConfig{Target: "runtime"}, "next", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mock := dockerclient.NewMockDockerClient(ctrl)
			mock.EXPECT().Ping(gomock.Any()).Return(types.Ping{APIVersion: tt.apiVer, Experimental: true}, nil)

			err := New(mock, nil).checkFeatures(context.Background(), tt.cfg)
			if tt.wantError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var unsupported UnsupportedOptionError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedOptionError, got %v", err)
			}
			if unsupported.Option != tt.wantError {
				t.Errorf("expected option %q, got %q", tt.wantError, unsupported.Option)
			}
			if unsupported.EngineAPI != tt.apiVer {
				t.Errorf("expected engine API %q, got %q", tt.apiVer, unsupported.EngineAPI)
			}
		})
	}
}

func TestCheckFeatures_SquashWithoutExperimental(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	mock.EXPECT().Ping(gomock.Any()).Return(types.Ping{APIVersion: "1.47"}, nil)

	var buf bytes.Buffer
	err := New(mock, newBufferLogger(&buf)).checkFeatures(context.Background(), config.BuildConfig{Squash: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("experimental")) {
		t.Errorf("expected experimental warning, got %q", buf.String())
	}
}

func TestCheckFeatures_PingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	pingErr := errors.New("connection refused")
	mock.EXPECT().Ping(gomock.Any()).Return(types.Ping{}, pingErr)

	err := New(mock, nil).checkFeatures(context.Background(), config.BuildConfig{Target: "runtime"})
	if !errors.Is(err, pingErr) {
		t.Fatalf("expected ping error to propagate, got %v", err)
	}
}

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"linux/amd64", "linux/amd64", false},
		{"Linux/ARM64/v8", "linux/arm64/v8", false},
		{" linux/arm/v7 ", "linux/arm/v7", false},
		{"amd64", "", true},
		{"linux/", "", true},
		{"linux/arm/v7/extra", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizePlatform(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("normalizePlatform(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
