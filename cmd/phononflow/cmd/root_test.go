package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	defaultConfigPath = "../../../config/phononflow"
	t.Cleanup(func() { defaultConfigPath = "./config/phononflow" })

	var out bytes.Buffer
	cmd := RootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestRender(t *testing.T) {
	out, err := executeRoot(t, "render")
	require.NoError(t, err)

	assert.Contains(t, out, "EXECUTOR")
	assert.Contains(t, out, "WORKERS/NODE")
	assert.Contains(t, out, "short-large")
	assert.Contains(t, out, "e89-soto")
	assert.Contains(t, out, "# executor short-large\n#!/bin/bash\n")
	assert.Contains(t, out, "#SBATCH --time=00:20:00\n")
}

func TestRender_InvalidConfig(t *testing.T) {
	override := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte("executor: missing\n"), 0o644))

	out, err := executeRoot(t, "render", "--config", override)

	var notFound *flowerrors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Value)
	assert.Equal(t, flowerrors.ExitCodeInvalidArgument, flowerrors.ExitCodeFromError(err))
	assert.Empty(t, out)
}
