// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/threads/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// username、email（大文字小文字を区別しない）、provider_id の一意性は
// ストア側の制約で保証し、違反時は *model.DuplicateKeyError を返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProviderID は外部IdPのsubjectでユーザーを検索する。見つからない場合はnilを返す。
	FindByProviderID(ctx context.Context, providerID string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// UsernameExists は指定usernameのユーザーが存在するかを返す。
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// LinkProvider はprovider_id未設定のユーザーにprovider_idを設定し、更新後のユーザーを返す。
	// 既に別のprovider_idが設定されている場合は上書きせず DuplicateKeyError を返す。
	LinkProvider(ctx context.Context, userID, providerID string) (*model.User, error)
}

// Pinger はDB疎通確認のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}
