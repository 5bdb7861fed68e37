// Package auth はOAuthログインフロー、ユーザー解決、セッション発行を提供する。
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/threads/internal/metrics"
	"github.com/hitoshi/threads/internal/model"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、検証済みプロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*model.FederatedProfile, error)
}

// Resolver はプロフィールをローカルユーザーに解決するインターフェース。
type Resolver interface {
	Resolve(ctx context.Context, profile *model.FederatedProfile) (*model.User, model.Outcome, error)
}

// Issuer はセッションクレデンシャルを発行するインターフェース。
type Issuer interface {
	Issue(userID string) (*model.Session, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	FrontendURL string // ログイン後の転送先
}

// Service はOAuthコールバックの処理を統括する。
// 1回のコールバックは RECEIVED → RESOLVING → RESOLVED → ISSUING → ISSUED と遷移し、
// 途中で失敗した場合は FAILED で終わる。
type Service struct {
	oauth       OAuthProvider
	resolver    Resolver
	issuer      Issuer
	metrics     metrics.MetricsCollector
	frontendURL string
}

// NewService はServiceを生成する。
// collector が nil の場合はメトリクスを記録しない。
func NewService(
	oauth OAuthProvider,
	resolver Resolver,
	issuer Issuer,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		oauth:       oauth,
		resolver:    resolver,
		issuer:      issuer,
		metrics:     collector,
		frontendURL: strings.TrimRight(config.FrontendURL, "/"),
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Authenticate は認可コードをプロフィールに交換し、コールバック処理を行う。
// 交換に失敗した場合は失敗分類 provider の結果を返す。
func (s *Service) Authenticate(ctx context.Context, code string) *model.CallbackResult {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		result := &model.CallbackResult{State: model.CallbackReceived}
		return s.fail(ctx, result, fmt.Errorf("%w: %w", model.ErrProviderExchange, err))
	}
	return s.HandleCallback(ctx, profile)
}

// HandleCallback は検証済みプロフィールからユーザーを解決し、セッションを発行する。
// 結果は常に転送先URLを含み、呼び出し側はそのままリダイレクトすればよい。
// 内部エラーの詳細はサーバーログにのみ出力する。
func (s *Service) HandleCallback(ctx context.Context, profile *model.FederatedProfile) *model.CallbackResult {
	start := time.Now()
	defer func() { s.metrics.RecordCallbackLatency(time.Since(start)) }()

	result := &model.CallbackResult{State: model.CallbackReceived}

	s.transition(result, model.CallbackResolving, "")
	user, outcome, err := s.resolver.Resolve(ctx, profile)
	if errors.Is(err, model.ErrDuplicateKey) {
		// 同時ログインの競合で負けた場合は、勝った側の書き込みを読み直す
		slog.Debug("concurrent login detected, resolving again",
			slog.String("error", err.Error()),
		)
		user, outcome, err = s.resolver.Resolve(ctx, profile)
	}
	if err != nil {
		return s.fail(ctx, result, err)
	}
	result.Outcome = outcome
	s.transition(result, model.CallbackResolved, user.ID)

	s.transition(result, model.CallbackIssuing, user.ID)
	session, err := s.issuer.Issue(user.ID)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	public := user.Public()
	redirectURL, err := s.successURL(&public)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	result.User = &public
	result.Session = session
	result.RedirectURL = redirectURL
	s.transition(result, model.CallbackIssued, user.ID)

	s.metrics.RecordLoginOutcome(string(outcome))
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("outcome", string(outcome)),
	)
	return result
}

// Reject はコールバックを検証前に失敗させる（state不一致、認可コード欠落など）。
func (s *Service) Reject(reason model.FailureReason) *model.CallbackResult {
	result := &model.CallbackResult{State: model.CallbackReceived}
	s.finish(result, reason)
	slog.Warn("oauth callback rejected", slog.String("reason", string(reason)))
	return result
}

// transition は状態を進める。デバッグログにはユーザーIDのみを出力する。
func (s *Service) transition(result *model.CallbackResult, next model.CallbackState, userID string) {
	slog.Debug("callback state transition",
		slog.String("from", string(result.State)),
		slog.String("to", string(next)),
		slog.String("user_id", userID),
	)
	result.State = next
}

// fail はエラーを失敗分類に変換し、結果をFAILEDにする。
func (s *Service) fail(ctx context.Context, result *model.CallbackResult, err error) *model.CallbackResult {
	reason := model.FailureReasonOf(err)
	level := slog.LevelError
	if reason == model.ReasonInvalidProfile || reason == model.ReasonProvider {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "login failed",
		slog.String("state", string(result.State)),
		slog.String("reason", string(reason)),
		slog.String("error", err.Error()),
	)
	s.finish(result, reason)
	return result
}

func (s *Service) finish(result *model.CallbackResult, reason model.FailureReason) {
	s.transition(result, model.CallbackFailed, "")
	result.Reason = reason
	result.RedirectURL = s.frontendURL + "/auth?" + url.Values{"error": {reason.Message()}}.Encode()
	s.metrics.RecordLoginFailure(string(reason))
}

// successURL はログイン成功時の転送先を組み立てる。
// 公開射影のみをURLエンコードしたJSONとして載せる。
func (s *Service) successURL(user *model.PublicUser) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user data: %w", err)
	}
	q := url.Values{
		"authSuccess": {"true"},
		"userData":    {string(data)},
	}
	return s.frontendURL + "/?" + q.Encode(), nil
}
