package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// significantContentBytes is the size above which file_write refuses to overwrite.
const significantContentBytes = 100

// FileWriteTool creates new files in the workspace.
type FileWriteTool struct {
	workspace Workspace
}

// NewFileWriteTool creates a new file_write tool.
func NewFileWriteTool(ws Workspace) *FileWriteTool {
	return &FileWriteTool{workspace: ws}
}

// Name returns the tool name.
func (t *FileWriteTool) Name() string {
	return ToolFileWrite
}

// Definition returns the tool definition for the engine.
func (t *FileWriteTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolFileWrite,
		Description: "Create a new file. Refuses to overwrite an existing file with significant content.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"filePath": {
					Type:        "string",
					Description: "Path of the file to create, absolute or relative to the project root",
				},
				"content": {
					Type:        "string",
					Description: "Full file content",
				},
				"createDirectories": {
					Type:        "boolean",
					Description: "Create missing parent directories. Defaults to true.",
				},
			},
			Required: []string{"filePath", "content"},
		},
	}
}

// Exec writes the file.
func (t *FileWriteTool) Exec(_ context.Context, args map[string]any) (any, error) {
	path, ok := args["filePath"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("filePath is required and must be a string")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content is required and must be a string")
	}
	createDirs := true
	if v, ok := args["createDirectories"].(bool); ok {
		createDirs = v
	}

	full, err := t.workspace.resolve(path)
	if err != nil {
		return nil, err
	}

	if existing, readErr := os.ReadFile(full); readErr == nil && len(strings.TrimSpace(string(existing))) > significantContentBytes {
		return nil, fmt.Errorf("File already exists with significant content. Use a patch instead to modify existing files: %s", path)
	}

	if createDirs {
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directories for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return map[string]any{
		"filePath":     path,
		"bytesWritten": len(content),
	}, nil
}
