package security

import (
	"strings"
	"testing"
)

func TestDisplayName_StripsMarkup(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Ada Lovelace", "Ada Lovelace"},
		{"インラインタグを除去", "<b>Ada</b> Lovelace", "Ada Lovelace"},
		{"scriptは中身ごと除去", "<script>alert(1)</script>Ada", "Ada"},
		{"on*属性を持つ要素も除去", `<img src=x onerror="alert(1)">Ada`, "Ada"},
		{"アンパサンドはエスケープされない", "Tom & Jerry", "Tom & Jerry"},
		{"連続する空白を1つにまとめる", "  Ada \t\n Lovelace  ", "Ada Lovelace"},
		{"日本語", "<i>山田</i> 太郎", "山田 太郎"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.DisplayName(tt.input)
			if got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayName_TruncatesLongNames(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	got := sanitizer.DisplayName(strings.Repeat("あ", maxDisplayNameLength+20))
	if n := len([]rune(got)); n != maxDisplayNameLength {
		t.Errorf("rune count = %d, want %d", n, maxDisplayNameLength)
	}
}

func TestDisplayName_Idempotent(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	input := `<p onclick="x()">Grace <em>Hopper</em></p>`
	first := sanitizer.DisplayName(input)
	second := sanitizer.DisplayName(first)
	if first != second {
		t.Errorf("not idempotent: first = %q, second = %q", first, second)
	}
}

func TestAvatarURL(t *testing.T) {
	sanitizer := NewProfileSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"https", "https://lh3.googleusercontent.com/a/abc", "https://lh3.googleusercontent.com/a/abc"},
		{"http", "http://example.com/a.png", "http://example.com/a.png"},
		{"前後の空白を除去", "  https://example.com/a.png ", "https://example.com/a.png"},
		{"javascriptスキームは拒否", "javascript:alert(1)", ""},
		{"dataスキームは拒否", "data:image/png;base64,AAAA", ""},
		{"相対URLは拒否", "/images/a.png", ""},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.AvatarURL(tt.input)
			if got != tt.want {
				t.Errorf("AvatarURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
