// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"strings"
	"testing"
)

// TestGenerate exercises the slug generator with typical category names,
// punctuation, accents, and boundary conditions.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple two words", input: "Hello World", want: "hello-world"},
		{name: "single word", input: "Wireframes", want: "wireframes"},
		{name: "punctuation", input: "Ideas, Drafts & Notes!", want: "ideas-drafts-notes"},
		{name: "accents folded", input: "Café Crème", want: "cafe-creme"},
		{name: "underscores and tabs", input: "snake_case\tname", want: "snake-case-name"},
		{name: "collapse hyphens", input: "a -- b", want: "a-b"},
		{name: "trim edges", input: "  --Projects--  ", want: "projects"},
		{name: "digits kept", input: "Q3 2026 Roadmap", want: "q3-2026-roadmap"},
		{name: "only symbols", input: "!!!", want: ""},
		{name: "non latin dropped", input: "日本語", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateTruncates(t *testing.T) {
	got := Generate(strings.Repeat("word ", 40))
	if len(got) > MaxLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug %q should not end with a hyphen", got)
	}
}

func TestUnique(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		taken []string
		want  string
	}{
		{"free", "ideas", nil, "ideas"},
		{"free despite similar", "ideas", []string{"ideas-2"}, "ideas"},
		{"first collision", "ideas", []string{"ideas"}, "ideas-2"},
		{"next after highest", "ideas", []string{"ideas", "ideas-2", "ideas-5"}, "ideas-6"},
		{"ignores other prefixes", "ideas", []string{"ideas", "ideas-board-3"}, "ideas-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unique(tt.base, tt.taken); got != tt.want {
				t.Errorf("Unique(%q, %v) = %q, want %q", tt.base, tt.taken, got, tt.want)
			}
		})
	}
}
