package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	// oauthStateCookieName はOAuthフローのstateを保持するCookieの名前。
	oauthStateCookieName = "oauth_state"

	// oauthStateQueryParam はコールバックURLでstateを受け取るクエリパラメータ名。
	oauthStateQueryParam = "state"

	// oauthStateMaxAge はstate Cookieの有効期間（秒）。
	oauthStateMaxAge = 600
)

// OAuthStateConfig はstate Cookieの設定。
type OAuthStateConfig struct {
	CookieSecure bool
	CookieDomain string
}

// IssueOAuthState は新しいstateを生成してCookieに設定する。
// 戻り値を認可URLのstateパラメータに使う。
// IdPからのトップレベル遷移で送信されるようSameSite=Laxとする。
func IssueOAuthState(w http.ResponseWriter, config OAuthStateConfig) (string, error) {
	state, err := generateStateToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// NewOAuthStateMiddleware はコールバックのstateクエリとCookieを照合するミドルウェアを返す。
// state Cookieは照合結果に関わらず削除する（1回限り）。
// 一致しない場合はnextを呼ばずrejectに処理を渡す。
func NewOAuthStateMiddleware(config OAuthStateConfig, reject http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clearOAuthState(w, config)

			cookie, err := r.Cookie(oauthStateCookieName)
			if err != nil || cookie.Value == "" {
				slog.Warn("oauth state validation failed: missing cookie",
					slog.String("path", r.URL.Path),
				)
				reject.ServeHTTP(w, r)
				return
			}

			queryState := r.URL.Query().Get(oauthStateQueryParam)
			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(queryState)) != 1 {
				slog.Warn("oauth state validation failed: mismatch",
					slog.String("path", r.URL.Path),
				)
				reject.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clearOAuthState はstate Cookieを削除する。
func clearOAuthState(w http.ResponseWriter, config OAuthStateConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateStateToken は暗号的に安全なstateを生成する。
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
