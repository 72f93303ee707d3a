package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/jscore/pkg/bytecode"
	"github.com/chazu/jscore/pkg/jserror"
	"github.com/chazu/jscore/pkg/value"
)

type cli struct {
	t   *testing.T
	dir string
}

// newCLI returns a runner whose configuration keeps the cache in a
// temporary directory.
func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	toml := "[log]\nverbosity = -4\n\n[cache]\npath = \"chunks.db\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jscore.toml"), []byte(toml), 0o644))
	return &cli{t: t, dir: dir}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", c.dir}, args...)
	code := execute(context.Background(), "test", args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) path(name string) string {
	return filepath.Join(c.dir, name)
}

func (c *cli) writeChunk(name string, chunk *bytecode.Chunk) string {
	c.t.Helper()
	data, err := bytecode.MarshalChunk(chunk)
	require.NoError(c.t, err)
	path := c.path(name)
	require.NoError(c.t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSampleRuns(t *testing.T) {
	c := newCLI(t)

	code, _, stderr := c.run("sample", "--out", c.path("sample.jsbc"))
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := c.run("run", c.path("sample.jsbc"))
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "[sample,3,[object Point]]\n", stdout)
}

func TestSampleToStdout(t *testing.T) {
	c := newCLI(t)

	code, stdout, _ := c.run("sample")
	require.Equal(t, 0, code)

	chunk, err := bytecode.UnmarshalChunk([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "sample", chunk.Name)
	assert.False(t, chunk.IsStrict())
}

func TestDisasm(t *testing.T) {
	c := newCLI(t)
	c.run("sample", "--out", c.path("sample.jsbc"))

	code, stdout, stderr := c.run("disasm", c.path("sample.jsbc"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "; === sample ===")
	assert.Contains(t, stdout, "ENTER_SCOPE")
	assert.Contains(t, stdout, "JUMP_TABLE")
	assert.Contains(t, stdout, "CONSTRUCT_SPREAD")
}

func TestInspect(t *testing.T) {
	c := newCLI(t)
	c.run("sample", "--strict", "--out", c.path("strict.jsbc"))

	code, stdout, stderr := c.run("inspect", "--code", c.path("strict.jsbc"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "name: sample")
	assert.Contains(t, stdout, "strict: true")
	assert.Contains(t, stdout, "debug: true")
	assert.Contains(t, stdout, "const origin")
	assert.Contains(t, stdout, "let i")
	assert.Contains(t, stdout, "code:")
}

func TestCacheRoundTrip(t *testing.T) {
	c := newCLI(t)
	c.run("sample", "--out", c.path("sample.jsbc"))

	code, stdout, stderr := c.run("cache", "put", c.path("sample.jsbc"))
	require.Equal(t, 0, code, stderr)
	hash := strings.Fields(stdout)[0]
	require.Len(t, hash, 64)
	assert.FileExists(t, c.path("chunks.db"))

	code, stdout, _ = c.run("cache", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, hash[:12])
	assert.Contains(t, stdout, "sample")

	// A hash that names no file is looked up in the cache.
	code, stdout, stderr = c.run("run", hash)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "[sample,3,[object Point]]\n", stdout)

	code, _, stderr = c.run("cache", "get", hash, "--out", c.path("copy.jsbc"))
	require.Equal(t, 0, code, stderr)
	original, err := os.ReadFile(c.path("sample.jsbc"))
	require.NoError(t, err)
	copied, err := os.ReadFile(c.path("copy.jsbc"))
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	code, _, stderr = c.run("cache", "rm", hash)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = c.run("cache", "rm", hash)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "chunk not found")
}

func TestCacheDisabled(t *testing.T) {
	c := newCLI(t)
	toml := "[log]\nverbosity = -4\n\n[cache]\nenabled = false\n"
	require.NoError(t, os.WriteFile(c.path("jscore.toml"), []byte(toml), 0o644))

	code, _, stderr := c.run("cache", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "disabled")
}

func TestRunUncaughtException(t *testing.T) {
	c := newCLI(t)

	// throw new Error("boom")
	comp := bytecode.NewCompiler("boom", true)
	comp.EmitGetName("Error")
	comp.EmitPushString("boom")
	comp.EmitConstruct(1)
	comp.EmitThrow()
	chunk, err := comp.Finish()
	require.NoError(t, err)

	code, stdout, stderr := c.run("run", c.writeChunk("boom.jsbc", chunk))
	assert.Equal(t, exitUncaught, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "uncaught Error: boom")
}

func TestRunReferenceError(t *testing.T) {
	c := newCLI(t)

	comp := bytecode.NewCompiler("missing", false)
	comp.EmitGetName("nowhere")
	comp.EmitReturn()
	chunk, err := comp.Finish()
	require.NoError(t, err)

	code, _, stderr := c.run("run", c.writeChunk("missing.jsbc", chunk))
	assert.Equal(t, exitUncaught, code)
	assert.Contains(t, stderr, "ReferenceError: nowhere is not defined")
}

func TestRunFault(t *testing.T) {
	c := newCLI(t)

	chunk := bytecode.NewChunk()
	chunk.Name = "unbalanced"
	chunk.Emit(bytecode.OpLeaveScope)

	code, _, stderr := c.run("run", c.writeChunk("fault.jsbc", chunk))
	assert.Equal(t, exitFault, code)
	assert.Contains(t, stderr, "internal fault")
}

func TestRunStackLimit(t *testing.T) {
	c := newCLI(t)

	comp := bytecode.NewCompiler("deep", false)
	for i := 0; i < 8; i++ {
		comp.EmitPushInt(int32(i))
	}
	comp.EmitReturn()
	chunk, err := comp.Finish()
	require.NoError(t, err)
	path := c.writeChunk("deep.jsbc", chunk)

	code, stdout, _ := c.run("run", path)
	require.Equal(t, 0, code)
	assert.Equal(t, "7\n", stdout)

	code, _, stderr := c.run("run", "--stack-limit", "4", path)
	assert.Equal(t, exitUncaught, code)
	assert.Contains(t, stderr, "RangeError")

	for _, limit := range []string{"0", "-1"} {
		code, stdout, stderr = c.run("run", "--stack-limit", limit, path)
		assert.Equal(t, 1, code, limit)
		assert.Empty(t, stdout, limit)
		assert.Contains(t, stderr, "engine.stack-limit must be positive", limit)
	}
}

func TestArrayLengthIsBounded(t *testing.T) {
	for _, n := range []int32{-1, maxArrayLength + 1, 1 << 30} {
		_, err := constructArray([]value.Value{value.Int(n)}, nil)
		ne, ok := jserror.AsNative(err)
		require.True(t, ok, "length %d", n)
		assert.Equal(t, jserror.KindRangeError, ne.Kind)
	}

	got, err := constructArray([]value.Value{value.Int(3)}, nil)
	require.NoError(t, err)
	arr, ok := got.AsObject()
	require.True(t, ok)
	assert.Len(t, arr.(*value.Array).Elements, 3)
}

func TestRunHugeArrayThrows(t *testing.T) {
	c := newCLI(t)

	comp := bytecode.NewCompiler("huge", false)
	comp.EmitGetName("Array")
	comp.EmitPushInt(1 << 30)
	comp.EmitConstruct(1)
	comp.EmitReturn()
	chunk, err := comp.Finish()
	require.NoError(t, err)

	code, _, stderr := c.run("run", c.writeChunk("huge.jsbc", chunk))
	assert.Equal(t, exitUncaught, code)
	assert.Contains(t, stderr, "RangeError: invalid array length")
}

func TestRunMissingFile(t *testing.T) {
	c := newCLI(t)

	code, _, stderr := c.run("run", c.path("absent.jsbc"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "reading")
}

func TestRunInterrupted(t *testing.T) {
	c := newCLI(t)
	c.run("sample", "--out", c.path("sample.jsbc"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	args := []string{"--config", c.dir, "run", c.path("sample.jsbc")}
	code := execute(ctx, "test", args, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "interrupted")
}
