package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/weft/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resolvedStep(command string, inputs ...string) *domain.ResolvedStep {
	return &domain.ResolvedStep{
		Name:       domain.NewInternedString("terrain"),
		Command:    command,
		Inputs:     inputs,
		Parameters: domain.NewParamMap(),
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	in := writeFile(t, dir, "dem.tif", "elevation data")

	step := resolvedStep("gdal_translate in out", in)
	first, err := h.Fingerprint(step)
	require.NoError(t, err)

	second, err := h.Fingerprint(step)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFingerprint_ChangesWithInputContent(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	in := writeFile(t, dir, "dem.tif", "elevation data")

	step := resolvedStep("gdal_translate in out", in)
	before, err := h.Fingerprint(step)
	require.NoError(t, err)

	writeFile(t, dir, "dem.tif", "new elevation data")
	after, err := h.Fingerprint(step)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_ChangesWithCommand(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	in := writeFile(t, dir, "dem.tif", "elevation data")

	before, err := h.Fingerprint(resolvedStep("gdal_translate -of GTiff in out", in))
	require.NoError(t, err)

	after, err := h.Fingerprint(resolvedStep("gdal_translate -of COG in out", in))
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_ChangesWithCommandTemplate(t *testing.T) {
	h := NewHasher(NewWalker())

	// Two templates can assemble to the same command when the substituted
	// pieces line up; the fingerprint still tells them apart.
	before := resolvedStep("gdal_translate in out")
	before.CommandTemplate = "gdal_translate {INPUTS} {OUTPUT}"
	after := resolvedStep("gdal_translate in out")
	after.CommandTemplate = "gdal_translate {INPUTS[0]} {OUTPUT}"

	first, err := h.Fingerprint(before)
	require.NoError(t, err)

	second, err := h.Fingerprint(after)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestFingerprint_ChangesWithParameters(t *testing.T) {
	h := NewHasher(NewWalker())

	withParams := func(quality string) *domain.ResolvedStep {
		step := resolvedStep("cmd")
		step.Parameters.Set("JPEG_QUALITY", domain.StringValue(quality))
		return step
	}

	before, err := h.Fingerprint(withParams("85"))
	require.NoError(t, err)

	after, err := h.Fingerprint(withParams("90"))
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_MissingInputIsNotAnError(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()

	step := resolvedStep("cmd", filepath.Join(dir, "nope.tif"))
	missing, err := h.Fingerprint(step)
	require.NoError(t, err)

	// Creating the file afterwards must change the fingerprint.
	writeFile(t, dir, "nope.tif", "now present")
	present, err := h.Fingerprint(step)
	require.NoError(t, err)
	assert.NotEqual(t, missing, present)
}

func TestFingerprint_InputOrderMatters(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tif", "aaa")
	b := writeFile(t, dir, "b.tif", "bbb")

	ab, err := h.Fingerprint(resolvedStep("cmd", a, b))
	require.NoError(t, err)

	ba, err := h.Fingerprint(resolvedStep("cmd", b, a))
	require.NoError(t, err)
	assert.NotEqual(t, ab, ba)
}

func TestFingerprint_GlobInput(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	writeFile(t, dir, "tile_1.tif", "one")
	writeFile(t, dir, "tile_2.tif", "two")

	step := resolvedStep("cmd", filepath.Join(dir, "tile_*.tif"))
	before, err := h.Fingerprint(step)
	require.NoError(t, err)

	writeFile(t, dir, "tile_2.tif", "changed")
	after, err := h.Fingerprint(step)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestOutputSignature(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	out := writeFile(t, dir, "out.tif", "rendered")

	sig, err := h.OutputSignature(out)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	writeFile(t, dir, "out.tif", "re-rendered")
	changed, err := h.OutputSignature(out)
	require.NoError(t, err)
	assert.NotEqual(t, sig, changed)
}

func TestOutputSignature_MissingIsAnError(t *testing.T) {
	h := NewHasher(NewWalker())

	_, err := h.OutputSignature(filepath.Join(t.TempDir(), "never-built.tif"))
	require.Error(t, err)
}

func TestOutputSignature_Directory(t *testing.T) {
	h := NewHasher(NewWalker())
	dir := t.TempDir()
	tiles := filepath.Join(dir, "tiles")
	require.NoError(t, os.Mkdir(tiles, 0o755))
	writeFile(t, tiles, "0.png", "tile zero")

	sig, err := h.OutputSignature(tiles)
	require.NoError(t, err)

	writeFile(t, tiles, "1.png", "tile one")
	changed, err := h.OutputSignature(tiles)
	require.NoError(t, err)
	assert.NotEqual(t, sig, changed)
}
