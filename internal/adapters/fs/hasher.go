package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/weft/internal/core/domain"
	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// missingMarker is the signature of an input that does not exist on disk. A
// missing input still produces a fingerprint: the step runs and the command
// itself reports the problem, while creating the file later changes the
// fingerprint and triggers a rebuild.
const missingMarker = "absent"

// Hasher implements ports.Hasher with xxhash content digests.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// Fingerprint digests everything that determines a step's output: the raw
// command template, the assembled command, the canonical parameter mapping,
// and the path plus content signature of every input in declared order.
// Input contents hash in parallel; the combination stays ordered so the
// result is deterministic.
func (h *Hasher) Fingerprint(step *domain.ResolvedStep) (string, error) {
	digest := xxhash.New()

	_, _ = digest.WriteString(step.CommandTemplate)
	_, _ = digest.Write([]byte{0})
	_, _ = digest.WriteString(step.Command)
	_, _ = digest.Write([]byte{0})
	if step.Parameters != nil {
		_, _ = digest.WriteString(step.Parameters.Canonical())
	}
	_, _ = digest.Write([]byte{0})

	signatures := make([]string, len(step.Inputs))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, input := range step.Inputs {
		g.Go(func() error {
			sig, err := h.inputSignature(input)
			if err != nil {
				return err
			}
			signatures[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	for i, input := range step.Inputs {
		_, _ = digest.WriteString(input)
		_, _ = digest.Write([]byte{0})
		_, _ = digest.WriteString(signatures[i])
		_, _ = digest.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// inputSignature digests one input path. Directories digest every contained
// file; a path that exists nowhere is tried as a glob pattern before it
// degrades to the missing marker.
func (h *Hasher) inputSignature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if matches, globErr := filepath.Glob(path); globErr == nil && len(matches) > 0 {
			return h.combineFiles(matches)
		}
		return missingMarker, nil
	}

	if info.IsDir() {
		var files []string
		for f := range h.walker.WalkFiles(path, nil) {
			files = append(files, f)
		}
		return h.combineFiles(files)
	}

	return h.fileSignature(path, info), nil
}

// fileSignature is the content hash of one file, degrading to an mtime+size
// stamp when the content cannot be read. An unreadable input still yields a
// fingerprint; it just rebuilds whenever the file metadata moves.
func (h *Hasher) fileSignature(path string, info os.FileInfo) string {
	if hash, err := h.fileHash(path); err == nil {
		return fmt.Sprintf("%016x", hash)
	}
	if info == nil {
		var err error
		info, err = os.Stat(path)
		if err != nil {
			return missingMarker
		}
	}
	return fmt.Sprintf("stat:%d:%d", info.ModTime().UnixNano(), info.Size())
}

func (h *Hasher) combineFiles(paths []string) (string, error) {
	digest := xxhash.New()
	for _, p := range paths {
		_, _ = digest.WriteString(p)
		_, _ = digest.Write([]byte{0})
		_, _ = digest.WriteString(h.fileSignature(p, nil))
		_, _ = digest.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// OutputSignature digests an output path's content. Unlike inputs, a missing
// output is an error: the caller uses it to classify the step as stale.
func (h *Hasher) OutputSignature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "output not found"), "path", path)
	}

	if info.IsDir() {
		var files []string
		for f := range h.walker.WalkFiles(path, nil) {
			files = append(files, f)
		}
		return h.combineFiles(files)
	}

	hash, err := h.fileHash(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hash), nil
}

func (h *Hasher) fileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return digest.Sum64(), nil
}
