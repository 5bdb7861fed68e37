package model

import "time"

// SessionLifetime はセッションCookieおよび署名済みトークンの有効期間。
// 発行時に固定され、利用時に延長されない。
const SessionLifetime = 15 * 24 * time.Hour

// Session は署名済みのステートレスなセッションクレデンシャルを表す。
// サーバー側にはセッションテーブルを持たない。
type Session struct {
	Token     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
