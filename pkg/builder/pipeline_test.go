package builder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/elver/elver/pkg/config"
	"github.com/elver/elver/pkg/dockerclient"
	"github.com/elver/elver/pkg/recipe"
)

func strPtr(s string) *string { return &s }

func TestRun_ExistingDockerfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	dir := newContext(t)

	mock.EXPECT().ImageBuild(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.Reader, opts types.ImageBuildOptions) (types.ImageBuildResponse, error) {
			assert.Equal(t, "Dockerfile", opts.Dockerfile)
			assert.Equal(t, []string{"acme/app:v1"}, opts.Tags)
			return buildResponse(successBody), nil
		})

	result, err := Run(context.Background(), mock, config.Options{
		Path:       strPtr(dir),
		Repository: strPtr("acme/app"),
		Tag:        strPtr("v1"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "sha256:mock123", result.ImageID)
	assert.False(t, result.Generated)
	assert.NotContains(t, dirEntries(t, dir), recipe.GeneratedName)
}

func TestRun_GeneratesRecipe(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask\n"), 0644))

	mock.EXPECT().ImageBuild(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.Reader, opts types.ImageBuildOptions) (types.ImageBuildResponse, error) {
			assert.Equal(t, recipe.GeneratedName, opts.Dockerfile)
			return buildResponse(successBody), nil
		})

	var buf bytes.Buffer
	result, err := Run(context.Background(), mock, config.Options{
		Path:       strPtr(dir),
		Repository: strPtr("acme/app"),
	}, newBufferLogger(&buf))
	require.NoError(t, err)

	assert.True(t, result.Generated)
	assert.Equal(t, recipe.GeneratedName, result.Recipe)

	data, err := os.ReadFile(filepath.Join(dir, recipe.GeneratedName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "FROM python")
	assert.Contains(t, string(data), "COPY . /code")
	assert.Contains(t, string(data), `RUN ["pip", "install", "-r", "/code/requirements.txt"]`)

	assert.Contains(t, buf.String(), "dockerfile not found, generating a default one")
	assert.Contains(t, buf.String(), "image built")
}

func TestRun_RandomRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	dir := newContext(t)

	mock.EXPECT().ImageBuild(gomock.Any(), gomock.Any(), gomock.Any()).Return(buildResponse(successBody), nil)

	var buf bytes.Buffer
	result, err := Run(context.Background(), mock, config.Options{Path: strPtr(dir)}, newBufferLogger(&buf))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "using a random repository")
	assert.Regexp(t, `^[0-9a-f-]{36}:latest$`, result.Reference)
}

func TestRun_EngineFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	dir := newContext(t)

	engineErr := errors.New("pull access denied")
	mock.EXPECT().ImageBuild(gomock.Any(), gomock.Any(), gomock.Any()).Return(types.ImageBuildResponse{}, engineErr)

	var buf bytes.Buffer
	result, err := Run(context.Background(), mock, config.Options{
		Path:       strPtr(dir),
		Repository: strPtr("acme/app"),
	}, newBufferLogger(&buf))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, engineErr)
	assert.NotContains(t, buf.String(), "image built")
}

func TestRun_MissingContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := dockerclient.NewMockDockerClient(ctrl)
	// No EXPECT: the engine must not be called

	_, err := Run(context.Background(), mock, config.Options{
		Path:       strPtr(filepath.Join(t.TempDir(), "missing")),
		Repository: strPtr("acme/app"),
	}, nil)
	require.Error(t, err)
}
