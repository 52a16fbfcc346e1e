package filex

import "strings"

// NormalizeDir strips the leading and trailing separators of a directory.
// Internal separators are kept as-is and no character validation happens.
func NormalizeDir(dir string) string {
	return strings.Trim(dir, "/")
}

// JoinKey joins a normalized directory and an object name into a backend key
func JoinKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// trimLeadingSlashes drops every leading separator from a caller-supplied key
func trimLeadingSlashes(key string) string {
	return strings.TrimLeft(key, "/")
}
