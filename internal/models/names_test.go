package models

import "testing"

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Downwell", "Downwell"},
		{"slashes", "a/b\\c", "a_b_c"},
		{"reserved chars", `what? "quotes" <and> pipes|`, "what_ _quotes_ _and_ pipes_"},
		{"colon", "Game: The Sequel", "Game_ The Sequel"},
		{"emoji preserved", "🦝 Raccoon Quest 🌙", "🦝 Raccoon Quest 🌙"},
		{"cjk preserved", "夜市 Night Market", "夜市 Night Market"},
		{"trailing dots trimmed", "v1.0...", "v1.0"},
		{"trailing space trimmed", "padded ", "padded"},
		{"control chars", "a\x00b\tc", "a_b_c"},
		{"empty becomes untitled", "", "untitled"},
		{"reserved runs become underscores", "???", "___"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFileName(tt.in); got != tt.want {
				t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAssignDestNames(t *testing.T) {
	worklist := Worklist{
		{ID: 10, Title: "Cave Story"},
		{ID: 11, Title: "cave story"},  // collides case-insensitively after sanitization
		{ID: 12, Title: "Cave/Story"},  // sanitizes to a distinct name
		{ID: 13, Title: "Cave: Story"}, // distinct
	}

	names := AssignDestNames(worklist)

	if names[10] != "Cave Story" {
		t.Errorf("names[10] = %q, want %q", names[10], "Cave Story")
	}
	if names[11] != "cave story [11]" {
		t.Errorf("names[11] = %q, want %q", names[11], "cave story [11]")
	}

	seen := make(map[string]int64)
	for id, name := range names {
		if prev, ok := seen[name]; ok {
			t.Errorf("assets %d and %d share destination name %q", prev, id, name)
		}
		seen[name] = id
	}
}
