// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ログインフローのエラー分類。
// 呼び出し側は errors.Is で判定し、ブラウザには FailureReason のみを返す。
var (
	ErrInvalidProfile      = errors.New("invalid federated profile")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrAllocationExhausted = errors.New("username allocation exhausted")
	ErrPersistence         = errors.New("persistence error")
	ErrSigning             = errors.New("credential signing failed")
	ErrInvalidCredential   = errors.New("invalid session credential")
	ErrProviderExchange    = errors.New("oauth provider exchange failed")
)

// 一意制約の対象カラム。
const (
	FieldUsername   = "username"
	FieldEmail      = "email"
	FieldProviderID = "provider_id"
)

// DuplicateKeyError はストアの一意制約違反を表す。
// 同時ログインの競合で負けた書き込みが受け取る。
type DuplicateKeyError struct {
	Field string
}

// Error はerrorインターフェースを実装する。
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s", e.Field)
}

// Unwrap は ErrDuplicateKey を返し、errors.Is での判定を可能にする。
func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// FailureReasonOf はエラーをブラウザ向けの失敗分類に変換する。
func FailureReasonOf(err error) FailureReason {
	switch {
	case errors.Is(err, ErrInvalidProfile):
		return ReasonInvalidProfile
	case errors.Is(err, ErrDuplicateKey):
		return ReasonDuplicate
	case errors.Is(err, ErrAllocationExhausted):
		return ReasonAllocationExhausted
	case errors.Is(err, ErrSigning):
		return ReasonSigning
	case errors.Is(err, ErrProviderExchange):
		return ReasonProvider
	default:
		return ReasonPersistence
	}
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeUserNotFound = "USER_NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ブラウザはメッセージをそのままトースト表示するため英語で返す。

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized - Please login",
		Category: "auth",
		Action:   "Sign in with Google.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はサーバーログにのみ出力すること。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Server error",
		Category: "system",
		Action:   "Wait a moment and try again.",
	}
}
