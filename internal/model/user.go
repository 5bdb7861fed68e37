// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// User はサービス利用ユーザーを表す。
// ProviderID はGoogleアカウントと紐付いている場合のみ設定される。
// PasswordHash はフェデレーテッドログインのみで作成されたユーザーでは nil。
type User struct {
	ID           string
	ProviderID   *string
	Email        string
	Username     string
	Name         string
	ProfilePic   string
	Bio          string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLinked はユーザーが外部IdPと紐付いているかを返す。
func (u *User) IsLinked() bool {
	return u.ProviderID != nil && *u.ProviderID != ""
}

// PublicUser はブラウザに渡すユーザー情報の公開射影。
// passwordHash と providerId は意図的に含めない。
type PublicUser struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
	Bio        string `json:"bio"`
}

// Public はユーザーの公開射影を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
	}
}

// NormalizeEmail はメールアドレスを比較用に正規化する。
// 前後の空白を除去して小文字化し、ドメイン部はIDNAのASCII形式に変換する。
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	domain, err := idna.Lookup.ToASCII(email[at+1:])
	if err != nil {
		return email
	}
	return email[:at+1] + domain
}
