// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import "strings"

// Glob returns true if subj matches the given "*"-wildcard pattern. This is
// used for matching things like ban/exception masks ("*!*@*.example.com")
// against hostmasks. Only "*" is treated specially; all other characters,
// including other shell-glob metacharacters, are matched literally.
func Glob(subj, pattern string) bool {
	if pattern == "" {
		return subj == pattern
	}

	parts := splitGlob(pattern)

	if len(parts) == 1 {
		if parts[0] == "" {
			// Pattern consisted entirely of "*" characters.
			return true
		}
		if !strings.ContainsRune(pattern, '*') {
			return subj == pattern
		}
	}

	leadingGlob := pattern[0] == '*'
	trailingGlob := pattern[len(pattern)-1] == '*'

	var end int
	if !leadingGlob {
		if !hasPrefix(subj, parts[0]) {
			return false
		}
		subj = subj[len(parts[0]):]
		parts = parts[1:]
	}

	end = len(parts)
	if !trailingGlob {
		end--
	}

	for i := 0; i < end; i++ {
		idx := indexOf(subj, parts[i])
		if idx < 0 {
			return false
		}
		subj = subj[idx+len(parts[i]):]
	}

	if !trailingGlob {
		return hasSuffix(subj, parts[len(parts)-1])
	}

	return true
}

// splitGlob splits pattern on "*", discarding empty segments produced by
// consecutive/leading/trailing "*" characters.
func splitGlob(pattern string) []string {
	var parts []string

	start := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			if i > start {
				parts = append(parts, pattern[start:i])
			}
			start = i + 1
		}
	}

	if start < len(pattern) {
		parts = append(parts, pattern[start:])
	}

	if len(parts) == 0 {
		return []string{""}
	}

	return parts
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func indexOf(s, sub string) int {
	if len(sub) == 0 {
		return 0
	}

	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}

	return -1
}
