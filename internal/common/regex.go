package common

import "regexp"

// CompileInsensitive compiles pattern with case-insensitive matching.
func CompileInsensitive(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}
