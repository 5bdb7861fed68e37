package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/threads/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// 制約名と一意性対象カラムの対応。migrations/000001_create_users.up.sql と一致させる。
var constraintFields = map[string]string{
	"users_username_key":    model.FieldUsername,
	"users_email_lower_key": model.FieldEmail,
	"users_provider_id_key": model.FieldProviderID,
}

const userColumns = `id, provider_id, email, username, name, profile_pic, bio, password_hash, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByProviderID は外部IdPのsubjectでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_id = $1`,
		providerID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
// Createと同じく正規化（ドメインはpunycode）してから比較する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		model.NormalizeEmail(email),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// UsernameExists は指定usernameのユーザーが存在するかを返す。
func (r *PostgresUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// Create はユーザーを作成する。
// 一意制約違反は *model.DuplicateKeyError に変換する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, provider_id, email, username, name, profile_pic, bio, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.ProviderID, user.Email, user.Username, user.Name,
		user.ProfilePic, user.Bio, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if dup := asDuplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// LinkProvider はprovider_id未設定のユーザーにprovider_idを設定する。
// 同じprovider_idが設定済みの場合は冪等に成功する。
func (r *PostgresUserRepo) LinkProvider(ctx context.Context, userID, providerID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET provider_id = $2, updated_at = now()
		 WHERE id = $1 AND (provider_id IS NULL OR provider_id = $2)
		 RETURNING `+userColumns,
		userID, providerID,
	))
	if err != nil {
		if dup := asDuplicateKey(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}
	if user == nil {
		// 既に別のprovider_idと紐付いている
		return nil, &model.DuplicateKeyError{Field: model.FieldProviderID}
	}
	return user, nil
}

// scanUser は1行をUserに読み込む。行が存在しない場合はnilを返す。
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		user         model.User
		providerID   sql.NullString
		passwordHash sql.NullString
	)
	err := row.Scan(
		&user.ID, &providerID, &user.Email, &user.Username, &user.Name,
		&user.ProfilePic, &user.Bio, &passwordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if providerID.Valid {
		user.ProviderID = &providerID.String
	}
	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	return &user, nil
}

// asDuplicateKey はlib/pqの一意制約違反を *model.DuplicateKeyError に変換する。
// 一意制約違反でない場合はnilを返す。
func asDuplicateKey(err error) *model.DuplicateKeyError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	field, ok := constraintFields[pqErr.Constraint]
	if !ok {
		field = pqErr.Constraint
	}
	return &model.DuplicateKeyError{Field: field}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
