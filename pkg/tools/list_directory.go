package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxListResults = 1000

// ListDirectoryTool lists files under a workspace directory.
type ListDirectoryTool struct {
	workspace  Workspace
	maxResults int
}

// NewListDirectoryTool creates a new list_directory tool.
func NewListDirectoryTool(ws Workspace, maxResults int) *ListDirectoryTool {
	if maxResults <= 0 {
		maxResults = defaultMaxListResults
	}
	return &ListDirectoryTool{workspace: ws, maxResults: maxResults}
}

// Name returns the tool name.
func (t *ListDirectoryTool) Name() string {
	return ToolListDirectory
}

// Definition returns the tool definition for the engine.
func (t *ListDirectoryTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListDirectory,
		Description: "List files in a project directory. Use this to explore what files exist.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"dirPath": {
					Type:        "string",
					Description: "Directory to list, absolute or relative to the project root. Defaults to the root.",
				},
				"recursive": {
					Type:        "boolean",
					Description: "Descend into subdirectories. Defaults to false.",
				},
			},
		},
	}
}

// Exec walks the directory. Hidden entries and node_modules are skipped.
func (t *ListDirectoryTool) Exec(_ context.Context, args map[string]any) (any, error) {
	dir := "."
	if d, ok := args["dirPath"].(string); ok && d != "" {
		dir = d
	}
	recursive, _ := args["recursive"].(bool)

	root, err := t.workspace.resolve(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	files := []string{}
	truncated := false
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && recursive {
			return nil
		}
		if len(files) >= t.maxResults {
			truncated = true
			return filepath.SkipAll
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			// Non-recursive listings show subdirectories with a trailing slash.
			files = append(files, filepath.ToSlash(rel)+"/")
			return filepath.SkipDir
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	return map[string]any{
		"directory": dir,
		"files":     files,
		"count":     len(files),
		"recursive": recursive,
		"truncated": truncated,
	}, nil
}
