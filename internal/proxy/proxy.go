package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/middleware"
)

// New creates a reverse proxy that forwards /api/<area>/... to the API root as
// <upstream>/<area>/... through rt. rt is expected to authenticate the request
// from its context, so browser cookies and credentials are never forwarded.
//
//	upstream:    "http://localhost:8000/api"
//	stripPrefix: "/api"
func New(upstream, stripPrefix string, rt http.RoundTripper) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(strings.TrimRight(upstream, "/"))
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("proxy: upstream must be an absolute URL")
	}

	p := &httputil.ReverseProxy{
		Transport: rt,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host

			// /api/lms/courses/ -> <target path>/lms/courses/
			in := pr.In.URL.Path
			rest := strings.TrimPrefix(in, stripPrefix)
			pr.Out.URL.Path = target.Path + rest
			pr.Out.URL.RawPath = ""

			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")

			if reqID := middleware.GetRequestID(pr.In.Context()); reqID != "" {
				pr.Out.Header.Set(middleware.HeaderXRequestID, reqID)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Del("Set-Cookie")
			return nil
		},
	}

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		reqID := middleware.GetRequestID(r.Context())

		status, code, msg := http.StatusBadGateway, "upstream_unavailable", "upstream service unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			status, code, msg = http.StatusGatewayTimeout, "upstream_timeout", "upstream service timed out"
		}

		logger.Ctx(r.Context()).Error().
			Err(err).
			Str("target", target.Redacted()).
			Str("path", r.URL.Path).
			Msg("upstream_proxy_error")

		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			// client went away
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":       code,
				"message":    msg,
				"request_id": reqID,
			},
		})
	}

	return p, nil
}
