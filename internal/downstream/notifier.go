package downstream

import (
	"context"

	"github.com/nextstep/nextstep-bff/internal/logger"
)

type NoticeKind string

const (
	NoticeSessionExpired NoticeKind = "session_expired"
	NoticeRequestFailed  NoticeKind = "request_failed"
	NoticeNetworkError   NoticeKind = "network_error"
)

const SessionExpiredMessage = "Your session has expired. Please log in again."

// Notice is a user-facing notification about a failed call.
type Notice struct {
	Kind    NoticeKind
	Status  int // 0 for network errors
	Message string
	Method  string
	Path    string
}

// Notifier receives notices from the authenticated transport. Implementations
// must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to the request logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notice) {
	logger.Ctx(ctx).Warn().
		Str("kind", string(n.Kind)).
		Int("status", n.Status).
		Str("method", n.Method).
		Str("path", n.Path).
		Str("message", n.Message).
		Msg("session_notice")
}
