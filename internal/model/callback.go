package model

// CallbackState はOAuthコールバック1回分の処理状態を表す。
//
//	RECEIVED → RESOLVING → RESOLVED → ISSUING → ISSUED
//	                    ↘ FAILED            ↘ FAILED
type CallbackState string

const (
	CallbackReceived  CallbackState = "RECEIVED"
	CallbackResolving CallbackState = "RESOLVING"
	CallbackResolved  CallbackState = "RESOLVED"
	CallbackIssuing   CallbackState = "ISSUING"
	CallbackIssued    CallbackState = "ISSUED"
	CallbackFailed    CallbackState = "FAILED"
)

// IsTerminal は終端状態かどうかを返す。
func (s CallbackState) IsTerminal() bool {
	return s == CallbackIssued || s == CallbackFailed
}

// FailureReason はブラウザに返してよい失敗分類。
// 内部エラーの詳細は含めない。
type FailureReason string

const (
	ReasonInvalidProfile      FailureReason = "invalid_profile"
	ReasonDuplicate           FailureReason = "duplicate"
	ReasonAllocationExhausted FailureReason = "allocation_exhausted"
	ReasonPersistence         FailureReason = "persistence"
	ReasonSigning             FailureReason = "signing"
	ReasonProvider            FailureReason = "provider"
	ReasonInvalidState        FailureReason = "invalid_state"
)

// Message はリダイレクトURLの error パラメータに載せる文言を返す。
func (r FailureReason) Message() string {
	switch r {
	case ReasonInvalidProfile, ReasonProvider, ReasonInvalidState:
		return "Failed to login with Google"
	default:
		return "Server error"
	}
}

// CallbackResult はコールバック処理の結果と、呼び出し側が行うべき転送指示を表す。
// State が CallbackIssued の場合は Session と User が設定され、
// CallbackFailed の場合は Reason が設定される。
type CallbackResult struct {
	State       CallbackState
	Outcome     Outcome
	User        *PublicUser
	Session     *Session
	Reason      FailureReason
	RedirectURL string
}

// Succeeded はセッションが発行されたかどうかを返す。
func (r *CallbackResult) Succeeded() bool {
	return r.State == CallbackIssued
}
