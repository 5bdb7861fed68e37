// Package seed はローカル開発用のサンプルユーザー投入ジョブを提供する。
// パスワード登録済みユーザーを用意し、メールアドレスによる紐付けを手元で確認できるようにする。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/threads/internal/model"
)

// DefaultPassword はサンプルユーザー共通のパスワード。
const DefaultPassword = "password123"

// Creator はユーザー作成のインターフェース。
// repository.UserRepository の部分集合として定義する。
type Creator interface {
	Create(ctx context.Context, user *model.User) error
}

// SampleUser は投入するユーザーの定義。
type SampleUser struct {
	Name     string
	Username string
	Email    string
	Bio      string
}

// SampleUsers は既定のサンプルユーザー。
var SampleUsers = []SampleUser{
	{Name: "John Doe", Username: "johndoe", Email: "john@example.com", Bio: "Software Engineer | JavaScript Enthusiast"},
	{Name: "Jane Smith", Username: "janesmith", Email: "jane@example.com", Bio: "UI/UX Designer | Creative Thinker"},
	{Name: "Alex Johnson", Username: "alexj", Email: "alex@example.com", Bio: "Full Stack Developer | React & Node.js"},
	{Name: "Sara Wilson", Username: "saraw", Email: "sara@example.com", Bio: "Product Manager | Tech Enthusiast"},
	{Name: "Mike Brown", Username: "mikebrown", Email: "mike@example.com", Bio: "DevOps Engineer | Cloud Architecture"},
}

// Result は投入結果の件数。
type Result struct {
	Created int
	Skipped int
}

// SeedJob はサンプルユーザーを投入するジョブ。
// 既に存在するユーザーはスキップするため、繰り返し実行しても結果は変わらない。
type SeedJob struct {
	users  Creator
	logger *slog.Logger

	Users      []SampleUser
	Password   string
	BcryptCost int
	Now        func() time.Time
}

// NewSeedJob は新しいSeedJobを生成する。
func NewSeedJob(users Creator, logger *slog.Logger) *SeedJob {
	return &SeedJob{
		users:      users,
		logger:     logger,
		Users:      SampleUsers,
		Password:   DefaultPassword,
		BcryptCost: bcrypt.DefaultCost,
		Now:        time.Now,
	}
}

// Run はサンプルユーザーを作成する。
// username・email・provider_id のいずれかが重複するユーザーは作成せずに数える。
func (j *SeedJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var result Result

	for _, su := range j.Users {
		user, err := j.build(su)
		if err != nil {
			return result, err
		}

		if err := j.users.Create(ctx, user); err != nil {
			if errors.Is(err, model.ErrDuplicateKey) {
				j.logger.Info("seed user already exists",
					slog.String("username", su.Username),
				)
				result.Skipped++
				continue
			}
			j.logger.Error("failed to create seed user",
				slog.String("username", su.Username),
				slog.String("error", err.Error()),
			)
			return result, fmt.Errorf("failed to create seed user %s: %w", su.Username, err)
		}
		result.Created++
	}

	j.logger.Info("seed job completed",
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return result, nil
}

// build はサンプル定義からユーザーを組み立てる。ソルトはユーザーごとに異なる。
func (j *SeedJob) build(su SampleUser) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(j.Password), j.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	passwordHash := string(hash)

	now := j.Now()
	return &model.User{
		ID:           uuid.NewString(),
		Email:        model.NormalizeEmail(su.Email),
		Username:     su.Username,
		Name:         su.Name,
		ProfilePic:   AvatarURL(su.Name),
		Bio:          su.Bio,
		PasswordHash: &passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AvatarURL は表示名から生成アバターのURLを返す。
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&size=200"
}
