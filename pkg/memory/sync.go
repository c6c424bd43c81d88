package memory

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TextExtensions are uploaded as inline content.
var TextExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".json": true,
	".csv": true, ".html": true, ".css": true, ".js": true,
}

// BinaryExtensions are uploaded as raw file payloads.
var BinaryExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true,
}

// SyncResult reports the outcome of one directory sync.
type SyncResult struct {
	Synced  int
	Skipped int
	Failed  int
}

// SyncID computes the deterministic dedup identifier for a file under root.
func SyncID(root, relPath string) string {
	return "dir:" + filepath.Base(root) + "/" + filepath.ToSlash(relPath)
}

// SyncDir mirrors a directory tree into the store. It fetches the existing
// custom-id set once, skips files whose id is already present and uploads
// the rest: text extensions inline, binary extensions as file payloads.
func (c *Client) SyncDir(root string, recursive bool) (SyncResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return SyncResult{}, fmt.Errorf("invalid directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return SyncResult{}, fmt.Errorf("not a directory: %s", root)
	}

	existing := make(map[string]bool)
	for _, rec := range c.ListAll() {
		if rec.CustomID != "" {
			existing[rec.CustomID] = true
		}
	}

	var result SyncResult
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !TextExtensions[ext] && !BinaryExtensions[ext] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		customID := SyncID(root, rel)
		if existing[customID] {
			result.Skipped++
			return nil
		}

		var ok bool
		if BinaryExtensions[ext] {
			ok = c.UploadFile(path, customID)
		} else {
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				result.Failed++
				return nil
			}
			ok = c.Add(string(content), customID, filepath.ToSlash(rel))
		}

		if ok {
			result.Synced++
		} else {
			result.Failed++
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", root, err)
	}
	return result, nil
}

const (
	contextFileLimit  = 20
	contextBytesLimit = 2000
)

// ReadDirContext reads text files under dir into a fenced-block summary for
// session-local context. Nothing is uploaded.
func ReadDirContext(dir string, maxFiles int) string {
	if maxFiles <= 0 {
		maxFiles = contextFileLimit
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Sprintf("Directory not found: %s", dir)
	}

	var files []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if TextExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	var parts []string
	for i, path := range files {
		if i >= maxFiles {
			parts = append(parts, fmt.Sprintf("\n... (truncated, %d files limit)", maxFiles))
			break
		}
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		parts = append(parts, fmt.Sprintf("### %s\n```\n%s\n```", filepath.ToSlash(rel), truncate(string(content), contextBytesLimit)))
	}

	if len(parts) == 0 {
		return "No readable files found."
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
