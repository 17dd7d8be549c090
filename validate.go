// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import "sync/atomic"

// Case mapping names, as advertised by the ISUPPORT CASEMAPPING key.
const (
	CaseMappingASCII         = "ascii"
	CaseMappingRFC1459       = "rfc1459"
	CaseMappingStrictRFC1459 = "strict-rfc1459"
)

// caseMapping holds the active case-folding mode, re-keyed whenever a
// connection receives an ISUPPORT CASEMAPPING value. Defaults to standard
// RFC1459 folding, matching historical networks that never advertise the
// key at all.
var caseMapping atomic.Value

func init() {
	caseMapping.Store(CaseMappingRFC1459)
}

// setCaseMapping updates the active case-folding mode. Unrecognized values
// are ignored, leaving the previous mapping (or the default) in effect.
func setCaseMapping(name string) {
	switch name {
	case CaseMappingASCII, CaseMappingRFC1459, CaseMappingStrictRFC1459:
		caseMapping.Store(name)
	}
}

// ToRFC1459 converts a string to its case-folded equivalent for comparison
// and map-key use (nicknames, channel names). The folding rule is
// determined by the most recently observed ISUPPORT CASEMAPPING value:
//
//   - "ascii": standard ASCII case folding only.
//   - "rfc1459" (default): ASCII folding plus "[]\^" -> "{}|~".
//   - "strict-rfc1459": ASCII folding plus "[]\" -> "{}|" (but not "^"/"~").
func ToRFC1459(s string) string {
	mode, _ := caseMapping.Load().(string)

	b := []byte(s)

	for i := range b {
		switch {
		case b[i] >= 'A' && b[i] <= 'Z':
			b[i] += 'a' - 'A'
		case mode == CaseMappingASCII:
			// No further folding.
		case b[i] == '[':
			b[i] = '{'
		case b[i] == ']':
			b[i] = '}'
		case b[i] == '\\':
			b[i] = '|'
		case b[i] == '^' && mode != CaseMappingStrictRFC1459:
			b[i] = '~'
		}
	}

	return string(b)
}

// IsValidNick validates an IRC nickname. Must be non-empty, start with a
// letter or one of the allowed special characters, and only contain
// letters, digits, hyphens, or those same special characters thereafter.
func IsValidNick(s string) bool {
	if len(s) == 0 || len(s) > 100 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c == '[' || c == ']' || c == '\\' || c == '^' || c == '_' || c == '{' || c == '|' || c == '}':
		case c >= '0' && c <= '9' || c == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// IsValidUser validates an IRC ident/username. An optional leading "~"
// (indicating no identd response) is allowed, followed by a letter or
// digit, then any combination of letters, digits, and select punctuation.
func IsValidUser(s string) bool {
	if len(s) == 0 {
		return false
	}

	if s[0] == '~' {
		s = s[1:]
	}

	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' || c == '.' || c == '[' || c == ']' || c == '\\' || c == '^' || c == '_' || c == '{' || c == '|' || c == '}':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// maxChannelLength is the maximum allowed length of a channel name,
// including its prefix.
const maxChannelLength = 50

// IsValidChannel validates an IRC channel name. Supports the standard
// "#"/"&"/"+" prefixed channels, as well as "!"-prefixed "safe" channels,
// which carry a 5-character unique id immediately after the "!".
func IsValidChannel(s string) bool {
	if len(s) < 2 || len(s) > maxChannelLength {
		return false
	}

	switch s[0] {
	case '#', '&', '+':
		return isValidChannelName(s[1:])
	case '!':
		if len(s) < 7 {
			return false
		}

		id := s[1:6]
		for i := 0; i < len(id); i++ {
			if !(id[i] >= 'A' && id[i] <= 'Z') && !(id[i] >= '0' && id[i] <= '9') {
				return false
			}
		}

		return isValidChannelName(s[6:])
	default:
		return false
	}
}

// isValidChannelName validates the portion of a channel name following its
// prefix (and, for "!" channels, its unique id).
func isValidChannelName(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', ',', ':', 0x00, 0x07, '\r', '\n':
			return false
		}
	}

	return true
}
