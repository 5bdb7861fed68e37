// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/threads/internal/middleware"
	"github.com/hitoshi/threads/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	Authenticate(ctx context.Context, code string) *model.CallbackResult
	Reject(reason model.FailureReason) *model.CallbackResult
}

// SessionCookies はセッションCookieの生成と削除を行うインターフェース。
// auth.SessionIssuerの部分集合として定義する。
type SessionCookies interface {
	Cookie(session *model.Session) *http.Cookie
	ClearCookie() *http.Cookie
}

// ProfileServiceInterface はログインユーザーの参照に必要なインターフェース。
type ProfileServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.PublicUser, error)
}

// ConfigStatus はOAuth設定の有無を返すインターフェース。
type ConfigStatus interface {
	Status() map[string]string
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  SessionCookies
	profiles ProfileServiceInterface
	status   ConfigStatus
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	cookies SessionCookies,
	profiles ProfileServiceInterface,
	status ConfigStatus,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		profiles: profiles,
		status:   status,
		config:   config,
	}
}

// stateConfig はstate Cookieの設定を返す。
func (h *AuthHandler) stateConfig() middleware.OAuthStateConfig {
	return middleware.OAuthStateConfig{
		CookieSecure: h.config.CookieSecure,
		CookieDomain: h.config.CookieDomain,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := middleware.IssueOAuthState(w, h.stateConfig())
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// StateGuard はコールバックの前段でstateを照合するミドルウェアを返す。
// 照合に失敗した場合はエラー付きでフロントエンドに転送する。
func (h *AuthHandler) StateGuard() func(next http.Handler) http.Handler {
	return middleware.NewOAuthStateMiddleware(h.stateConfig(), http.HandlerFunc(h.rejectState))
}

// rejectState はstate不一致のコールバックをエラー付きで転送する。
func (h *AuthHandler) rejectState(w http.ResponseWriter, r *http.Request) {
	result := h.service.Reject(model.ReasonInvalidState)
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /api/auth/google/callback?code=xxx&state=yyy
// stateはStateGuardで照合済みであること。
// どの失敗でもエラー画面は出さず、フロントエンドに転送する。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// 同意画面でのキャンセル等はIdPがerrorパラメータ付きで戻す
	if idpErr := query.Get("error"); idpErr != "" {
		slog.Warn("oauth provider returned error", slog.String("idp_error", idpErr))
		result := h.service.Reject(model.ReasonProvider)
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}

	code := query.Get("code")
	if code == "" {
		result := h.service.Reject(model.ReasonProvider)
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}

	result := h.service.Authenticate(r.Context(), code)
	if result.Succeeded() {
		http.SetCookie(w, h.cookies.Cookie(result.Session))
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// Logout はセッションCookieを削除する。
// POST /api/auth/logout
// クレデンシャルはステートレスのため、サーバー側で失効させるものはない。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.ClearCookie())
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
// セッションミドルウェアの後段に配置すること。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, profile)
}

// Debug はOAuth設定の有無を返す。秘密情報の値は返さない。
// GET /api/auth/debug
func (h *AuthHandler) Debug(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.status.Status())
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
