package model

// FederatedProfile は外部IdPから取得した検証済みプロフィール。
// 永続化はされず、ユーザー解決の入力としてのみ使われる。
type FederatedProfile struct {
	ProviderID  string `validate:"required"`
	Email       string `validate:"required,email"`
	DisplayName string
	// AvatarURL は説明用の項目で、ログインの成否に影響しない。
	// 使えない値は解決時に空文字列へ正規化される。
	AvatarURL   string
}

// Outcome はユーザー解決の結果種別を表す。
type Outcome string

const (
	// OutcomeLinkedExisting はprovider_idで既存ユーザーが見つかったことを示す。
	OutcomeLinkedExisting Outcome = "linked_existing"
	// OutcomeLinkedByEmail はメールアドレス一致の既存ユーザーに紐付けたことを示す。
	OutcomeLinkedByEmail Outcome = "linked_by_email"
	// OutcomeCreated は新規ユーザーを作成したことを示す。
	OutcomeCreated Outcome = "created"
)
