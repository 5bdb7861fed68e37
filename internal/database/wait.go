package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialPingBackoff は疎通確認リトライの初回遅延。
	initialPingBackoff = 250 * time.Millisecond
	// maxPingBackoff は疎通確認リトライの最大遅延。
	maxPingBackoff = 5 * time.Second
)

// Pinger はDB疎通確認のインターフェース。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CalculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回250ms、2倍ずつ増加、最大5秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialPingBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxPingBackoff {
			return maxPingBackoff
		}
	}
	return delay
}

// WaitForReady はDBが応答するまで指数バックオフで疎通確認を繰り返す。
// コンテナ起動直後のDBを待つために使う。ctxの期限切れで最後のエラーを返す。
func WaitForReady(ctx context.Context, db Pinger) error {
	for failures := 0; ; failures++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}

		delay := CalculateBackoff(failures)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", failures+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("database not ready after %d attempts: %w", failures+1, err)
		case <-timer.C:
		}
	}
}
