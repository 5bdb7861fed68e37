package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/threads/internal/metrics"
	"github.com/hitoshi/threads/internal/model"
	"github.com/hitoshi/threads/internal/repository"
	"github.com/hitoshi/threads/internal/security"
)

// DefaultUsernameRetries はユーザー名の一意制約違反時に再割り当てする最大回数。
const DefaultUsernameRetries = 3

// ResolverConfig はIdentityResolverの設定。
type ResolverConfig struct {
	UsernameRetries int
	Now             func() time.Time
}

// IdentityResolver は外部IdPのプロフィールをローカルユーザーに対応付ける。
// provider_id → メールアドレス → 新規作成 の順に解決する。
type IdentityResolver struct {
	users           repository.UserRepository
	allocator       *UsernameAllocator
	sanitizer       *security.ProfileSanitizer
	validate        *validator.Validate
	metrics         metrics.MetricsCollector
	usernameRetries int
	now             func() time.Time
}

// NewIdentityResolver はIdentityResolverを生成する。
// collector が nil の場合はメトリクスを記録しない。
func NewIdentityResolver(
	users repository.UserRepository,
	allocator *UsernameAllocator,
	sanitizer *security.ProfileSanitizer,
	collector metrics.MetricsCollector,
	config ResolverConfig,
) *IdentityResolver {
	if config.UsernameRetries <= 0 {
		config.UsernameRetries = DefaultUsernameRetries
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &IdentityResolver{
		users:           users,
		allocator:       allocator,
		sanitizer:       sanitizer,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		metrics:         collector,
		usernameRetries: config.UsernameRetries,
		now:             config.Now,
	}
}

// Resolve はプロフィールに対応するユーザーを返す。
// 既存ユーザーのプロフィール項目（表示名、アバター）は更新しない。
//
// エラーは model.ErrInvalidProfile、model.ErrDuplicateKey、
// model.ErrAllocationExhausted、model.ErrPersistence のいずれかをラップする。
// ErrDuplicateKey は同時ログインの競合を意味し、呼び出し側で再解決できる。
func (r *IdentityResolver) Resolve(ctx context.Context, profile *model.FederatedProfile) (*model.User, model.Outcome, error) {
	p, err := r.validProfile(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	// 1. provider_id で検索
	user, err := r.users.FindByProviderID(ctx, p.ProviderID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if user != nil {
		return user, model.OutcomeLinkedExisting, nil
	}

	// 2. メールアドレスで検索し、既存アカウントに紐付ける
	user, err = r.users.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if user != nil {
		return r.link(ctx, user, p.ProviderID)
	}

	// 3. 新規作成
	return r.provision(ctx, p)
}

// validProfile は入力を検証し、前後の空白を除去したコピーを返す。
// 検証に失敗した場合はストアに一切アクセスしない。
func (r *IdentityResolver) validProfile(ctx context.Context, profile *model.FederatedProfile) (*model.FederatedProfile, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is nil", model.ErrInvalidProfile)
	}
	p := *profile
	p.ProviderID = strings.TrimSpace(p.ProviderID)
	p.Email = strings.TrimSpace(p.Email)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	if err := r.validate.StructCtx(ctx, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidProfile, err)
	}
	return &p, nil
}

func (r *IdentityResolver) link(ctx context.Context, user *model.User, providerID string) (*model.User, model.Outcome, error) {
	linked, err := r.users.LinkProvider(ctx, user.ID, providerID)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateKey) {
			return nil, "", fmt.Errorf("link provider: %w", err)
		}
		return nil, "", fmt.Errorf("%w: link provider: %w", model.ErrPersistence, err)
	}
	if linked == nil {
		return nil, "", fmt.Errorf("%w: user %s disappeared while linking", model.ErrPersistence, user.ID)
	}

	// メール一致による自動紐付けはアカウント乗っ取りの経路になり得るため監査ログを残す
	slog.Warn("provider linked to existing account by email",
		slog.String("user_id", linked.ID),
		slog.String("provider", "google"),
	)
	return linked, model.OutcomeLinkedByEmail, nil
}

func (r *IdentityResolver) provision(ctx context.Context, p *model.FederatedProfile) (*model.User, model.Outcome, error) {
	name := r.sanitizer.DisplayName(p.DisplayName)
	providerID := p.ProviderID

	for attempt := 0; ; attempt++ {
		username, draws, err := r.allocator.Allocate(ctx, name)
		r.metrics.RecordUsernameDraws(draws)
		if err != nil {
			return nil, "", err
		}

		now := r.now()
		user := &model.User{
			ID:         uuid.NewString(),
			ProviderID: &providerID,
			Email:      model.NormalizeEmail(p.Email),
			Username:   username,
			Name:       name,
			ProfilePic: r.sanitizer.AvatarURL(p.AvatarURL),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		err = r.users.Create(ctx, user)
		if err == nil {
			slog.Info("new user created",
				slog.String("user_id", user.ID),
				slog.String("username", user.Username),
			)
			return user, model.OutcomeCreated, nil
		}

		var dup *model.DuplicateKeyError
		if !errors.As(err, &dup) {
			return nil, "", fmt.Errorf("%w: create user: %w", model.ErrPersistence, err)
		}
		// ユーザー名の競合のみ再割り当てで解消する
		if dup.Field != model.FieldUsername || attempt >= r.usernameRetries {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
		slog.Debug("username taken concurrently, reallocating",
			slog.String("username", username),
			slog.Int("attempt", attempt+1),
		)
	}
}
