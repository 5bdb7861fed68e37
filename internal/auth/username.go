package auth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/hitoshi/threads/internal/model"
)

// ユーザー名割り当てのデフォルト値。
const (
	DefaultUsernameMaxAttempts = 50
	DefaultUsernameFallback    = 10
	defaultUsernameBase        = "user"

	suffixMin         = 1000
	suffixMax         = 9999
	fallbackSuffixMin = 10000000
	fallbackSuffixMax = 99999999
)

// IntnFunc は [0, n) の乱数を返す関数。テストで差し替える。
type IntnFunc func(n int) int

// UsernameChecker はユーザー名の使用状況を問い合わせるインターフェース。
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// AllocatorConfig はユーザー名割り当ての設定。
type AllocatorConfig struct {
	MaxAttempts      int      // 4桁サフィックスの最大試行回数
	FallbackAttempts int      // 8桁サフィックスの最大試行回数。負の値で無効
	Intn             IntnFunc // nilの場合は math/rand/v2
}

// UsernameAllocator は表示名から一意なユーザー名を割り当てる。
// 問い合わせのみで書き込みは行わない。返した名前が作成時まで空いている保証はなく、
// 最終的な一意性はストアの一意制約で担保する。
type UsernameAllocator struct {
	checker          UsernameChecker
	maxAttempts      int
	fallbackAttempts int
	intn             IntnFunc
}

// NewUsernameAllocator はUsernameAllocatorを生成する。
func NewUsernameAllocator(checker UsernameChecker, config AllocatorConfig) *UsernameAllocator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultUsernameMaxAttempts
	}
	if config.FallbackAttempts < 0 {
		config.FallbackAttempts = 0
	} else if config.FallbackAttempts == 0 {
		config.FallbackAttempts = DefaultUsernameFallback
	}
	if config.Intn == nil {
		config.Intn = rand.IntN
	}
	return &UsernameAllocator{
		checker:          checker,
		maxAttempts:      config.MaxAttempts,
		fallbackAttempts: config.FallbackAttempts,
		intn:             config.Intn,
	}
}

// NormalizeUsernameBase は表示名をユーザー名の基底文字列に変換する。
// 小文字化してすべての空白を除去し、空になった場合は "user" を返す。
func NormalizeUsernameBase(displayName string) string {
	base := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, displayName)
	if base == "" {
		return defaultUsernameBase
	}
	return base
}

// Allocate は表示名から未使用のユーザー名を返す。
// 基底名が空いていればそのまま返し、使用済みなら4桁の乱数サフィックスを試す。
// 上限に達した場合は8桁サフィックスで再試行し、それも尽きたら ErrAllocationExhausted を返す。
// 2つ目の戻り値は乱数サフィックスの試行回数。
func (a *UsernameAllocator) Allocate(ctx context.Context, displayName string) (string, int, error) {
	base := NormalizeUsernameBase(displayName)

	taken, err := a.exists(ctx, base)
	if err != nil {
		return "", 0, err
	}
	if !taken {
		return base, 0, nil
	}

	draws := 0
	phases := []struct {
		attempts int
		min, max int
	}{
		{a.maxAttempts, suffixMin, suffixMax},
		{a.fallbackAttempts, fallbackSuffixMin, fallbackSuffixMax},
	}
	for _, phase := range phases {
		for i := 0; i < phase.attempts; i++ {
			if err := ctx.Err(); err != nil {
				return "", draws, fmt.Errorf("%w: %w", model.ErrPersistence, err)
			}
			draws++
			candidate := base + strconv.Itoa(phase.min+a.intn(phase.max-phase.min+1))
			taken, err := a.exists(ctx, candidate)
			if err != nil {
				return "", draws, err
			}
			if !taken {
				return candidate, draws, nil
			}
		}
	}

	return "", draws, fmt.Errorf("%w: base %q after %d draws", model.ErrAllocationExhausted, base, draws)
}

func (a *UsernameAllocator) exists(ctx context.Context, username string) (bool, error) {
	taken, err := a.checker.UsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("%w: check username: %w", model.ErrPersistence, err)
	}
	return taken, nil
}
