package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

func TestErrorIs(t *testing.T) {
	var err error = At("a.c", 3, Redefinition, "label %v", "out")

	err = errors.Wrap(err, "function %v", "main")

	require.ErrorIs(t, err, Redefinition)
	assert.NotErrorIs(t, err, Redeclaration)
	assert.Contains(t, err.Error(), "a.c:3: (REDEFINITION) label out")
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer

	Report(&buf, At("a.c", 7, IncompleteType, "field %v", "x"))
	assert.Equal(t, "a.c:7: error: (INCOMPLETE_TYPE) field x\n", buf.String())

	buf.Reset()

	Report(&buf, New(Internal, "lost block"))
	assert.Contains(t, buf.String(), "internal error: (INTERNAL) lost block\n")
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("\n")), 1, "stack expected")
}

func TestRecover(t *testing.T) {
	f := func() (err error) {
		defer Recover(&err)

		var m map[string]int
		m["x"] = 1

		return nil
	}

	err := f()
	require.ErrorIs(t, err, Internal)
	assert.True(t, Internal.Internal())
	assert.False(t, Conflict.Internal())
}
