// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer は外部IdPから受け取ったプロフィール項目を
// 保存前に無害化する。表示名はプレーンテキストとして扱い、
// マークアップはbluemondayのStrictPolicyですべて除去する。
package security

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// maxDisplayNameLength は表示名として保存する最大文字数（rune数）。
const maxDisplayNameLength = 100

// ProfileSanitizer はプロフィール項目のサニタイズ機能を提供する。
// bluemondayのポリシーはスレッドセーフなため、1インスタンスを共有してよい。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{policy: bluemonday.StrictPolicy()}
}

// DisplayName は表示名からタグを除去したプレーンテキストを返す。
// script/styleの中身は破棄し、前後の空白を除去して最大長で切り詰める。
func (s *ProfileSanitizer) DisplayName(raw string) string {
	// StrictPolicyはテキストをエスケープして返すため、プレーンテキストに戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxDisplayNameLength {
		text = string([]rune(text)[:maxDisplayNameLength])
	}
	return text
}

// AvatarURL はhttp/httpsの絶対URLのみを通過させる。
// それ以外（javascript:、data:、相対URL等）は空文字列を返す。
func (s *ProfileSanitizer) AvatarURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
