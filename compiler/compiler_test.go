package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/slowlang/quadcc/compiler/diag"
)

type testCase struct {
	Name string   `yaml:"name"`
	Src  string   `yaml:"src"`
	IR   []string `yaml:"ir"`
	Asm  []string `yaml:"asm"`
	Err  string   `yaml:"err"`
}

func loadCases(t *testing.T, name string) []testCase {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	var cases []testCase

	err = yaml.Unmarshal(data, &cases)
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	return cases
}

func code(t *testing.T, name string) diag.Code {
	t.Helper()

	for c := diag.SymbolAlreadyExists; c <= diag.Internal; c++ {
		if c.String() == name {
			return c
		}
	}

	require.Fail(t, "unknown error code", "%v", name)

	return 0
}

func TestCompileCases(t *testing.T) {
	for _, tc := range loadCases(t, "compile.yaml") {
		tc := tc

		t.Run(tc.Name, func(t *testing.T) {
			var ir bytes.Buffer

			asm, err := Compile(context.Background(), tc.Name+".c", []byte(tc.Src), Options{
				Stop: StageAssembly,
				IR:   &ir,
			})

			if tc.Err != "" {
				c := code(t, tc.Err)

				assert.True(t, errors.Is(err, c), "want %v, got %v", c, err)

				return
			}

			require.NoError(t, err)

			for _, exp := range tc.IR {
				assert.Contains(t, ir.String(), exp)
			}

			for _, exp := range tc.Asm {
				assert.Contains(t, string(asm), exp)
			}
		})
	}
}

func TestStages(t *testing.T) {
	ctx := context.Background()
	src := []byte("int add(int a,int b){ return a+b; }")

	var ast, ir bytes.Buffer

	asm, err := Compile(ctx, "t.c", src, Options{Stop: StageAST, AST: &ast, IR: &ir})
	require.NoError(t, err)

	assert.Nil(t, asm)
	assert.Contains(t, ast.String(), "DECL add")
	assert.Zero(t, ir.Len())

	ast.Reset()

	asm, err = Compile(ctx, "t.c", src, Options{Stop: StageIR, IR: &ir})
	require.NoError(t, err)

	assert.Nil(t, asm)
	assert.Zero(t, ast.Len())
	assert.Contains(t, ir.String(), "FN_add:")

	asm, err = Compile(ctx, "t.c", src, Options{Stop: StageAssembly})
	require.NoError(t, err)

	assert.Contains(t, string(asm), "add:\n")
}

func TestParseStage(t *testing.T) {
	for _, st := range []Stage{StageAST, StageIR, StageAssembly} {
		got, ok := ParseStage(st.String())
		assert.True(t, ok)
		assert.Equal(t, st, got)
	}

	_, ok := ParseStage("binary")
	assert.False(t, ok)
}

func TestCompileFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "f.c")

	err := os.WriteFile(name, []byte("int main(){ return 0; }"), 0o644)
	require.NoError(t, err)

	asm, err := CompileFile(context.Background(), name, Options{Stop: StageAssembly})
	require.NoError(t, err)

	assert.Contains(t, string(asm), ".globl main\nmain:\n")

	_, err = CompileFile(context.Background(), filepath.Join(t.TempDir(), "missing.c"), Options{})
	assert.Error(t, err)
}
