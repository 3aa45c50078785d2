package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	defaultReadLines   = 2000 // Default number of lines to read
	maxLineLength      = 2000 // Truncate lines longer than this
	defaultStartOffset = 1    // 1-based line numbering
)

// FileReadTool reads file contents from the workspace.
type FileReadTool struct {
	workspace Workspace
}

// NewFileReadTool creates a new file_read tool.
func NewFileReadTool(ws Workspace) *FileReadTool {
	return &FileReadTool{workspace: ws}
}

// Name returns the tool name.
func (t *FileReadTool) Name() string {
	return ToolFileRead
}

// Definition returns the tool definition for the engine.
func (t *FileReadTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolFileRead,
		Description: "Read the contents of a file in the project. Output uses numbered lines. For large files, use offset and limit to read specific sections.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"filePath": {
					Type:        "string",
					Description: "Path to the file, absolute or relative to the project root",
				},
				"offset": {
					Type:        "integer",
					Description: "Line number to start reading from (1-based). Defaults to 1.",
				},
				"limit": {
					Type:        "integer",
					Description: "Number of lines to read. Defaults to 2000.",
				},
			},
			Required: []string{"filePath"},
		},
	}
}

// intArgOrDefault extracts a positive integer argument, returning defaultVal if missing or invalid.
// Handles float64 (from JSON unmarshal), int, and int64 value types.
func intArgOrDefault(args map[string]any, key string, defaultVal int) int {
	v, exists := args[key]
	if !exists {
		return defaultVal
	}
	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case int64:
		n = int(val)
	default:
		return defaultVal
	}
	if n < 1 {
		return defaultVal
	}
	return n
}

// Exec reads the requested line window.
func (t *FileReadTool) Exec(_ context.Context, args map[string]any) (any, error) {
	path, ok := args["filePath"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("filePath is required and must be a string")
	}
	offset := intArgOrDefault(args, "offset", defaultStartOffset)
	limit := intArgOrDefault(args, "limit", defaultReadLines)

	full, err := t.workspace.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("File not found: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("Path is not a file: %s", path)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("file not readable: %s (%w)", path, err)
	}
	defer f.Close()

	var out strings.Builder
	maxBytes := t.workspace.maxRead()
	truncated := false
	endLine := offset + limit - 1
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		if lineNo < offset || lineNo > endLine {
			continue
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		if int64(out.Len()+len(line)) > maxBytes {
			truncated = true
			continue
		}
		fmt.Fprintf(&out, "%6d\t%s\n", lineNo, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", path, err)
	}
	if lineNo > endLine {
		truncated = true
	}

	return map[string]any{
		"filePath":   path,
		"content":    out.String(),
		"size":       info.Size(),
		"totalLines": lineNo,
		"offset":     offset,
		"limit":      limit,
		"truncated":  truncated,
	}, nil
}
