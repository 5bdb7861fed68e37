package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/threads/internal/model"
)

// MemoryUserRepo はプロセス内メモリ上のユーザーリポジトリ。
// PostgreSQLと同じ一意制約（username、小文字化したemail、provider_id）を
// ミューテックス下で検査するため、同時ログインの競合検証に使える。
type MemoryUserRepo struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byUsername map[string]string
	byEmail    map[string]string
	byProvider map[string]string
}

// NewMemoryUserRepo は空のMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:       make(map[string]*model.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		byProvider: make(map[string]string),
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id), nil
}

// FindByProviderID は外部IdPのsubjectでユーザーを検索する。
func (r *MemoryUserRepo) FindByProviderID(_ context.Context, providerID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byProvider[providerID]), nil
}

// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byEmail[model.NormalizeEmail(email)]), nil
}

// UsernameExists は指定usernameのユーザーが存在するかを返す。
func (r *MemoryUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

// Create はユーザーを作成する。一意制約違反は *model.DuplicateKeyError を返す。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[user.Username]; ok {
		return &model.DuplicateKeyError{Field: model.FieldUsername}
	}
	email := model.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return &model.DuplicateKeyError{Field: model.FieldEmail}
	}
	if user.IsLinked() {
		if _, ok := r.byProvider[*user.ProviderID]; ok {
			return &model.DuplicateKeyError{Field: model.FieldProviderID}
		}
	}

	stored := *user
	r.byID[stored.ID] = &stored
	r.byUsername[stored.Username] = stored.ID
	r.byEmail[email] = stored.ID
	if stored.IsLinked() {
		r.byProvider[*stored.ProviderID] = stored.ID
	}
	return nil
}

// LinkProvider はprovider_id未設定のユーザーにprovider_idを設定する。
func (r *MemoryUserRepo) LinkProvider(_ context.Context, userID, providerID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, nil
	}
	if user.IsLinked() {
		if *user.ProviderID == providerID {
			return r.copyOf(userID), nil
		}
		return nil, &model.DuplicateKeyError{Field: model.FieldProviderID}
	}
	if owner, taken := r.byProvider[providerID]; taken && owner != userID {
		return nil, &model.DuplicateKeyError{Field: model.FieldProviderID}
	}

	pid := providerID
	user.ProviderID = &pid
	user.UpdatedAt = time.Now()
	r.byProvider[providerID] = userID
	return r.copyOf(userID), nil
}

// Count は保存されているユーザー数を返す。
func (r *MemoryUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// copyOf は呼び出し側が内部状態を書き換えられないようコピーを返す。
// ロックは呼び出し側で保持していること。
func (r *MemoryUserRepo) copyOf(id string) *model.User {
	user, ok := r.byID[id]
	if !ok {
		return nil
	}
	c := *user
	if user.ProviderID != nil {
		pid := *user.ProviderID
		c.ProviderID = &pid
	}
	return &c
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
