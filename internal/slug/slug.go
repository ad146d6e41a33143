// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from category names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps generated slugs. Suffixes added by Unique may exceed it.
const MaxLength = 96

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space, or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators collapses whitespace, underscores, and hyphen runs into one hyphen.
	separators = regexp.MustCompile(`[\s_-]+`)
	// suffixed matches a "-N" uniqueness suffix.
	suffixed = regexp.MustCompile(`-(\d+)$`)
)

// Generate creates a URL-friendly slug from the given string. Accented
// letters are folded to ASCII first.
// Example: "Café Ideas & Wireframes" → "cafe-ideas-wireframes"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(fold(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Unique returns base if it is not in taken, otherwise base with the
// smallest "-N" suffix (N >= 2) that is free.
func Unique(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	if !used[base] {
		return base
	}

	n := 2
	for _, s := range taken {
		rest, ok := strings.CutPrefix(s, base)
		if !ok {
			continue
		}
		if m := suffixed.FindStringSubmatch(rest); m != nil && m[0] == rest {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= n {
				n = v + 1
			}
		}
	}
	return base + "-" + strconv.Itoa(n)
}
