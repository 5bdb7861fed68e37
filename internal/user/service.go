// Package user はログイン済みユーザーの参照を提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/threads/internal/model"
)

// UserFinder はユーザー検索のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Service はユーザー参照のサービス層。
type Service struct {
	users UserFinder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users UserFinder) *Service {
	return &Service{users: users}
}

// Profile はユーザーの公開プロフィールを返す。
// セッションは有効だがユーザーが存在しない場合は USER_NOT_FOUND の APIError を返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	public := user.Public()
	return &public, nil
}
