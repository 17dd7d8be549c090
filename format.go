// Copyright 2016 Liam Stanley <me@liamstanley.io>. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package ircx

import "strings"

type color struct {
	aliases []string
	code    string // two-digit mIRC color code, empty for non-color formatting.
	val     string
}

var colors = []*color{
	{aliases: []string{"white"}, code: "00", val: "\x0300"},
	{aliases: []string{"black"}, code: "01", val: "\x0301"},
	{aliases: []string{"blue", "navy"}, code: "02", val: "\x0302"},
	{aliases: []string{"green"}, code: "03", val: "\x0303"},
	{aliases: []string{"red"}, code: "04", val: "\x0304"},
	{aliases: []string{"brown", "maroon"}, code: "05", val: "\x0305"},
	{aliases: []string{"purple"}, code: "06", val: "\x0306"},
	{aliases: []string{"orange", "olive", "gold"}, code: "07", val: "\x0307"},
	{aliases: []string{"yellow"}, code: "08", val: "\x0308"},
	{aliases: []string{"lightgreen", "lime"}, code: "09", val: "\x0309"},
	{aliases: []string{"teal"}, code: "10", val: "\x0310"},
	{aliases: []string{"cyan"}, code: "11", val: "\x0311"},
	{aliases: []string{"lightblue", "royal"}, code: "12", val: "\x0312"},
	{aliases: []string{"lightpurple", "pink", "fuchsia"}, code: "13", val: "\x0313"},
	{aliases: []string{"grey", "gray"}, code: "14", val: "\x0314"},
	{aliases: []string{"lightgrey", "silver"}, code: "15", val: "\x0315"},
	{aliases: []string{"bold", "b"}, val: "\x02"},
	{aliases: []string{"italic", "i"}, val: "\x1d"},
	{aliases: []string{"reset", "r"}, val: "\x0f"},
	{aliases: []string{"clear", "c"}, val: "\x03"},
	{aliases: []string{"reverse"}, val: "\x16"},
	{aliases: []string{"underline", "ul"}, val: "\x1f"},
}

// colorCode returns the two-digit mIRC color code for a given alias.
func colorCode(name string) (code string, ok bool) {
	for _, c := range colors {
		if c.code == "" {
			continue
		}
		for _, a := range c.aliases {
			if a == name {
				return c.code, true
			}
		}
	}
	return "", false
}

// formatToken resolves a single "{...}" token (without the braces) into its
// raw IRC escape sequence. ok is false if the token isn't a recognized
// format/color directive, in which case it should be left untouched.
func formatToken(token string) (val string, ok bool) {
	if strings.IndexByte(token, ',') >= 0 {
		parts := strings.SplitN(token, ",", 2)
		fg, bg := parts[0], parts[1]

		if fg == "" {
			// Background-only is not representable without a foreground; drop it.
			return "", true
		}

		fgCode, fgOk := colorCode(fg)
		if !fgOk {
			return "", false
		}

		val = "\x03" + fgCode
		if bg != "" {
			if bgCode, bgOk := colorCode(bg); bgOk {
				val += "," + bgCode
			}
		}
		return val, true
	}

	for _, c := range colors {
		for _, a := range c.aliases {
			if a == token {
				return c.val, true
			}
		}
	}

	return "", false
}

// transformFormat walks text looking for "{...}" format directives,
// resolving each one via formatToken. If strip is true, resolved tokens are
// removed entirely rather than replaced with their escape sequence.
func transformFormat(text string, strip bool) string {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		if text[i] == 0x7B { // {
			if end := strings.IndexByte(text[i+1:], 0x7D); end >= 0 {
				closeIdx := i + 1 + end
				token := text[i+1 : closeIdx]

				if !strings.ContainsRune(token, 0x7B) {
					if val, ok := formatToken(token); ok {
						if !strip {
							out.WriteString(val)
						}
						i = closeIdx + 1
						continue
					}
				}
			}
		}

		out.WriteByte(text[i])
		i++
	}

	return out.String()
}

// Fmt takes color/format strings like "{red}" or "{red,yellow}" and turns
// them into the resulting ASCII escape sequences used over the wire.
func Fmt(text string) string {
	return transformFormat(text, false)
}

// TrimFmt strips all "{color}" formatting directives from the input text,
// without expanding them. See Fmt() for more information.
func TrimFmt(text string) string {
	return transformFormat(text, true)
}

// StripRaw strips all raw mIRC formatting/color escape sequences (the kind
// produced by Fmt(), not the "{color}" directives themselves) from text.
// Useful to sanitize incoming messages before logging or re-displaying them
// somewhere that doesn't support mIRC formatting.
func StripRaw(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		switch text[i] {
		case 0x02, 0x1d, 0x0f, 0x16, 0x1f:
			i++
		case 0x03:
			i++

			var fgDigits int
			for fgDigits < 2 && i < len(text) && text[i] >= '0' && text[i] <= '9' {
				i++
				fgDigits++
			}

			if fgDigits > 0 && i < len(text) && text[i] == ',' {
				j := i + 1
				var bgDigits int
				for bgDigits < 2 && j < len(text) && text[j] >= '0' && text[j] <= '9' {
					j++
					bgDigits++
				}
				if bgDigits > 0 {
					i = j
				}
			}
		default:
			out.WriteByte(text[i])
			i++
		}
	}

	return out.String()
}

// StripColors strips all raw ASCII color/format codes used for IRC. This is
// an alias of StripRaw, kept for users migrating formatting calls.
func StripColors(text string) string {
	return StripRaw(text)
}
