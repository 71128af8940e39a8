package database

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"naïve", "naive"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeSearchText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Matematika", "matematika"},
		{"Fyzika - 2.B", "fyzika 2.b"},
		{"  Český   jazyk ", "cesky jazyk"},
		{"Jan-Novák", "jan novak"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeSearchText(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeSearchText(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSearchKey(t *testing.T) {
	if got := SearchKey("3.A", "Dějepis"); got != "3.a dejepis" {
		t.Errorf("SearchKey = %q, want %q", got, "3.a dejepis")
	}
	if got := SearchKey("Chemie", ""); got != "chemie" {
		t.Errorf("SearchKey without subject = %q, want %q", got, "chemie")
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Math", "%math%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
		{"", "%%"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LikePattern(tt.input); got != tt.expected {
				t.Errorf("LikePattern(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
