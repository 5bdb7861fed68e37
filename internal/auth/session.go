package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/threads/internal/model"
)

const (
	// SessionCookieName はセッションクレデンシャルを運ぶCookie名。
	SessionCookieName = "jwt"
	// DefaultIssuer は発行するトークンの iss クレーム。
	DefaultIssuer = "threads"
)

// SessionClaims はセッショントークンのクレーム。
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionIssuerConfig はSessionIssuerの設定。
type SessionIssuerConfig struct {
	Secret       string
	Issuer       string
	CookieDomain string
	CookieSecure bool
	Now          func() time.Time
}

// SessionIssuer はHS256で署名したステートレスなセッショントークンを発行・検証する。
// 有効期間は model.SessionLifetime で固定され、利用しても延長されない。
// サーバー側で失効させる仕組みは持たない。
type SessionIssuer struct {
	secret       []byte
	issuer       string
	cookieDomain string
	cookieSecure bool
	now          func() time.Time
}

// NewSessionIssuer はSessionIssuerを生成する。
// 署名鍵が空の場合は model.ErrSigning を返す。
func NewSessionIssuer(config SessionIssuerConfig) (*SessionIssuer, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("%w: signing secret is empty", model.ErrSigning)
	}
	if config.Issuer == "" {
		config.Issuer = DefaultIssuer
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &SessionIssuer{
		secret:       []byte(config.Secret),
		issuer:       config.Issuer,
		cookieDomain: config.CookieDomain,
		cookieSecure: config.CookieSecure,
		now:          config.Now,
	}, nil
}

// Issue はユーザーIDに対するセッションを発行する。
func (s *SessionIssuer) Issue(userID string) (*model.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is empty", model.ErrSigning)
	}

	// JWTの時刻は秒精度
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(model.SessionLifetime)

	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSigning, err)
	}

	return &model.Session{
		Token:     token,
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify はトークンの署名と有効期限を検証し、セッションを復元する。
// 検証に失敗した場合は model.ErrInvalidCredential をラップして返す。
func (s *SessionIssuer) Verify(token string) (*model.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", model.ErrInvalidCredential)
	}

	var claims SessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidCredential, err)
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject mismatch", model.ErrInvalidCredential)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", model.ErrInvalidCredential)
	}

	return &model.Session{
		Token:     token,
		UserID:    claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Cookie はセッションを運ぶCookieを返す。
// JavaScriptから読めず、クロスサイトのリクエストには付与されない。
func (s *SessionIssuer) Cookie(session *model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   int(model.SessionLifetime / time.Second),
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie はセッションCookieを削除するためのCookieを返す。
// トークン自体は有効期限まで有効なまま残る。
func (s *SessionIssuer) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
