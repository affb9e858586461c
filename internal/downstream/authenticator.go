package downstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
)

var refreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_refresh_total",
		Help: "Token refresh outcomes triggered by a 401 from the API",
	},
	[]string{"result"},
)

const (
	refreshSuccess        = "success"
	refreshShared         = "shared"
	refreshFailure        = "failure"
	refreshNoToken        = "no_refresh_token"
	refreshSuperseded     = "superseded"
	defaultRefreshTimeout = 5 * time.Second
)

// Authenticator attaches the session's bearer token to outgoing requests and
// recovers from an expired access token by refreshing once and replaying the
// request.
type Authenticator struct {
	base      http.RoundTripper
	refresher Refresher
	notifier  Notifier
	timeout   time.Duration

	// keyed by refresh token; concurrent 401s of one session share a refresh
	group singleflight.Group
}

func NewAuthenticator(base http.RoundTripper, r Refresher, n Notifier, refreshTimeout time.Duration) *Authenticator {
	if base == nil {
		base = http.DefaultTransport
	}
	if n == nil {
		n = LogNotifier{}
	}
	if refreshTimeout <= 0 {
		refreshTimeout = defaultRefreshTimeout
	}
	return &Authenticator{
		base:      base,
		refresher: r,
		notifier:  n,
		timeout:   refreshTimeout,
	}
}

// Transport returns a RoundTripper bound to st.
func (a *Authenticator) Transport(st *session.Store) http.RoundTripper {
	return &storeTransport{a: a, store: st}
}

// ContextTransport resolves the store from each request's context. Requests
// without a session go out unauthenticated.
func (a *Authenticator) ContextTransport() http.RoundTripper {
	return contextTransport{a: a}
}

type storeTransport struct {
	a     *Authenticator
	store *session.Store
}

func (t *storeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.a.roundTrip(req, t.store)
}

type contextTransport struct {
	a *Authenticator
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	st := session.FromContext(req.Context())
	if st == nil {
		st = session.NewStore(nil)
	}
	return t.a.roundTrip(req, st)
}

func (a *Authenticator) roundTrip(req *http.Request, st *session.Store) (*http.Response, error) {
	ctx := req.Context()
	log := logger.Ctx(ctx).With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	sent := st.AccessToken()
	resp, err := a.send(req, body, sent)
	if err != nil {
		a.notifyNetwork(ctx, req)
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		a.notifyStatus(ctx, req, resp)
		log.Debug().Str("state", "done").Int("status", resp.StatusCode).Msg("auth_transport")
		return resp, nil
	}
	if skipsRefresh(ctx) {
		log.Debug().Str("state", "done").Int("status", resp.StatusCode).Bool("skip_refresh", true).Msg("auth_transport")
		return resp, nil
	}

	orig, err := bufferResponse(resp)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("state", "retrying").Msg("auth_transport")
	if !a.recover(ctx, log, st, sent) {
		log.Debug().Str("state", "failed").Int("status", orig.StatusCode).Msg("auth_transport")
		return orig, nil
	}

	retry, err := a.send(req, body, st.AccessToken())
	if err != nil {
		a.notifyNetwork(ctx, req)
		return nil, err
	}
	// A second 401 is the answer; no further refresh.
	if retry.StatusCode != http.StatusUnauthorized {
		a.notifyStatus(ctx, req, retry)
	}
	log.Debug().Str("state", "done").Int("status", retry.StatusCode).Bool("retried", true).Msg("auth_transport")
	return retry, nil
}

// recover makes the store hold a token worth retrying with. It returns false
// when the original 401 should be handed back.
func (a *Authenticator) recover(ctx context.Context, log zerolog.Logger, st *session.Store, sent string) bool {
	if cur := st.AccessToken(); cur != "" && cur != sent {
		refreshTotal.WithLabelValues(refreshSuperseded).Inc()
		return true
	}

	// Another replica may have refreshed or logged out in the meantime.
	if err := st.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("session_reload_failed")
	}
	if cur := st.AccessToken(); cur != "" && cur != sent {
		refreshTotal.WithLabelValues(refreshSuperseded).Inc()
		return true
	}

	rt := st.RefreshToken()
	if rt == "" {
		refreshTotal.WithLabelValues(refreshNoToken).Inc()
		a.expire(ctx, log, st, sent != "")
		return false
	}

	ch := a.group.DoChan(rt, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.refresher.Refresh(fctx, rt)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return false
	}

	if res.Err != nil {
		if ctx.Err() != nil {
			return false
		}
		refreshTotal.WithLabelValues(refreshFailure).Inc()
		log.Info().Err(res.Err).Msg("session_refresh_failed")
		a.expire(ctx, log, st, true)
		return false
	}

	if res.Shared {
		refreshTotal.WithLabelValues(refreshShared).Inc()
	} else {
		refreshTotal.WithLabelValues(refreshSuccess).Inc()
	}

	pair := res.Val.(domain.TokenPair)
	if err := st.UpdateTokens(ctx, pair.Access, pair.Refresh); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return false
		}
		// The in-memory tokens are updated; only the durable copy lags.
		log.Warn().Err(err).Msg("session_refresh_persist_failed")
	}
	log.Debug().Bool("shared", res.Shared).Msg("session_refreshed")
	return true
}

func (a *Authenticator) expire(ctx context.Context, log zerolog.Logger, st *session.Store, notify bool) {
	if err := st.ClearAuth(ctx); err != nil {
		log.Warn().Err(err).Msg("session_clear_failed")
	}
	log.Debug().Str("state", "session_cleared").Msg("auth_transport")
	if notify {
		a.notifier.Notify(ctx, Notice{
			Kind:    NoticeSessionExpired,
			Status:  http.StatusUnauthorized,
			Message: SessionExpiredMessage,
		})
	}
}

func (a *Authenticator) send(req *http.Request, body []byte, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return a.base.RoundTrip(r)
}

func (a *Authenticator) notifyNetwork(ctx context.Context, req *http.Request) {
	if ctx.Err() != nil {
		return
	}
	a.notifier.Notify(ctx, Notice{
		Kind:    NoticeNetworkError,
		Message: GenericMessage,
		Method:  req.Method,
		Path:    req.URL.Path,
	})
}

func (a *Authenticator) notifyStatus(ctx context.Context, req *http.Request, resp *http.Response) {
	if resp.StatusCode < 400 {
		return
	}
	msg := UserMessage(peekBody(resp))
	if msg == "" {
		msg = GenericMessage
	}
	a.notifier.Notify(ctx, Notice{
		Kind:    NoticeRequestFailed,
		Status:  resp.StatusCode,
		Message: msg,
		Method:  req.Method,
		Path:    req.URL.Path,
	})
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// bufferResponse reads resp fully so it can be returned after further round
// trips have happened.
func bufferResponse(resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	resp.ContentLength = int64(len(b))
	return resp, nil
}

// peekBody returns up to maxErrorBody bytes of resp's body and leaves the body
// readable from the start.
func peekBody(resp *http.Response) []byte {
	if resp.Body == nil {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body = &peekedBody{
		Reader: io.MultiReader(bytes.NewReader(head), resp.Body),
		Closer: resp.Body,
	}
	return head
}

type peekedBody struct {
	io.Reader
	io.Closer
}
