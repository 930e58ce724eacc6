// Package pathutil delimits filesystem paths into the segments the storage
// engine walks one directory level at a time, and computes a path's parent
// directory. Both operations mirror the original image format's convention
// that every path is absolute and begins with '/'.
package pathutil

import "strings"

// Delimit splits an absolute path into its non-empty components in order.
// Delimit("/dir/file.txt") returns []string{"dir", "file.txt"}; Delimit("/")
// returns nil, meaning resolution terminates at the root directory without
// walking any component.
func Delimit(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ParentOf returns the parent directory of path. A single trailing slash is
// ignored. The parent of a top-level entry ("/foo") is "", which callers
// treat as the root directory.
func ParentOf(path string) string {
	end := len(path)
	if end > 0 && path[end-1] == '/' {
		end--
	}
	idx := strings.LastIndexByte(path[:end], '/')
	if idx < 0 {
		idx = 0
	}
	return path[:idx]
}

// Leaf returns the final path component of path, i.e. what remains after
// stripping ParentOf(path) and the separating slash.
func Leaf(path string) string {
	parent := ParentOf(path)
	return path[len(parent)+1:]
}
