// FILE: lixenwraith/sinklog/rotate/naming.go
package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Compression algorithms
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// compressedExts lists every suffix a rotated generation may carry
var compressedExts = []string{".gz", ".zst"}

// Extension returns the file suffix produced by algo, or "" for none
func Extension(algo string) string {
	switch algo {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	}
	return ""
}

// generation is one rotated file, identified by its uncompressed name
type generation struct {
	stem  string
	index int
	dup   int
}

// generationPattern matches <base>.<index>[.<dup>][.gz|.zst]
func generationPattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `\.(\d+)(?:\.(\d+))?(?:\.(gz|zst))?$`)
}

// scanGenerations lists rotated generations of path, oldest first
func scanGenerations(path string, pattern *regexp.Regexp) ([]generation, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErrorf("failed to read log directory '%s': %w", dir, err)
	}

	seen := make(map[string]bool)
	var gens []generation
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		dup := 0
		if m[2] != "" {
			if dup, err = strconv.Atoi(m[2]); err != nil {
				continue
			}
		}

		stem := entry.Name()
		if m[3] != "" {
			stem = stem[:len(stem)-len(m[3])-1]
		}
		stem = filepath.Join(dir, stem)
		if seen[stem] {
			continue
		}
		seen[stem] = true
		gens = append(gens, generation{stem: stem, index: index, dup: dup})
	}

	sort.Slice(gens, func(i, j int) bool {
		if gens[i].index != gens[j].index {
			return gens[i].index < gens[j].index
		}
		return gens[i].dup < gens[j].dup
	})
	return gens, nil
}

// nextIndexFrom resumes numbering after the highest index on disk
func nextIndexFrom(gens []generation) int {
	next := 1
	for _, g := range gens {
		if g.index >= next {
			next = g.index + 1
		}
	}
	return next
}

// generationExists reports whether stem exists in any of its forms
func generationExists(stem string) bool {
	if fileExists(stem) {
		return true
	}
	for _, ext := range compressedExts {
		if fileExists(stem + ext) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}

// rotatedName returns the name for index, appending the smallest unused
// .<k> suffix when the plain name is already taken
func rotatedName(base string, width, index int) string {
	name := fmt.Sprintf("%s.%0*d", base, width, index)
	if !generationExists(name) {
		return name
	}
	for k := 1; ; k++ {
		candidate := name + "." + strconv.Itoa(k)
		if !generationExists(candidate) {
			return candidate
		}
	}
}
