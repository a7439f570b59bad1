package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/quadcc/compiler"
)

func TestOutput(t *testing.T) {
	for _, name := range []string{"", "-", "stdout"} {
		w, err := output(name)
		require.NoError(t, err)

		_, ok := w.(nopCloser)
		assert.True(t, ok, "%q", name)
		assert.NoError(t, w.Close())
	}

	name := filepath.Join(t.TempDir(), "out.s")

	w, err := output(name)
	require.NoError(t, err)

	_, err = w.Write([]byte("ret\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "ret\n", string(data))
}

func TestStageCommands(t *testing.T) {
	c := stageCmd(compiler.StageIR, "generate quads")

	assert.Equal(t, "ir", c.Name)
	assert.NotNil(t, c.Action)
	assert.Len(t, c.Flags, 5)
}
