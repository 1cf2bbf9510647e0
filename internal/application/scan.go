package application

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ericfisherdev/nextshift/internal/domain/model"
)

// edgeRuntimePattern matches the whole export line in both quote styles,
// with or without the trailing semicolon.
var edgeRuntimePattern = regexp.MustCompile(`(?m)^[ \t]*export\s+const\s+runtime\s*=\s*["']edge["'];?[ \t]*$`)

// edgeRuntimeComment replaces the export line so the diff shows what was
// removed and why.
const edgeRuntimeComment = `// export const runtime = "edge" removed during Cloudflare migration`

// sourceExtensions are the file types scanned for edge-runtime exports.
var sourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// skippedDirs are never descended into during a scan.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	".open-next":   true,
}

// ScanEdgeRuntime walks the checkout looking for edge-runtime export
// declarations in source files. A checkout with none is a NoMatch, not an
// error; only a walk or read failure yields ScanToolingError.
func ScanEdgeRuntime(root string) model.ScanResult {
	var matched []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if edgeRuntimePattern.Match(data) {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			matched = append(matched, rel)
		}
		return nil
	})
	if err != nil {
		return model.ScanResult{Outcome: model.ScanToolingError, Err: err}
	}

	if len(matched) == 0 {
		return model.ScanResult{Outcome: model.ScanNoMatch}
	}
	return model.ScanResult{Outcome: model.ScanMatched, Files: matched}
}

// RemoveEdgeRuntime rewrites every edge-runtime export line under root with
// a comment marker, returning the number of files changed.
func RemoveEdgeRuntime(root string) (int, error) {
	scan := ScanEdgeRuntime(root)
	if scan.Outcome == model.ScanToolingError {
		return 0, scan.Err
	}

	var rewritten int
	for _, rel := range scan.Files {
		path := filepath.Join(root, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return rewritten, err
		}

		updated := edgeRuntimePattern.ReplaceAll(data, []byte(edgeRuntimeComment))
		if err := os.WriteFile(path, updated, 0o644); err != nil {
			return rewritten, err
		}
		rewritten++
	}

	return rewritten, nil
}
