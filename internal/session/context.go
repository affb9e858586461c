package session

import "context"

type ctxKeyStore struct{}
type ctxKeySID struct{}

func WithStore(ctx context.Context, sid string, st *Store) context.Context {
	ctx = context.WithValue(ctx, ctxKeyStore{}, st)
	return context.WithValue(ctx, ctxKeySID{}, sid)
}

// FromContext returns the request's session store, or nil.
func FromContext(ctx context.Context) *Store {
	st, _ := ctx.Value(ctxKeyStore{}).(*Store)
	return st
}

func SIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(ctxKeySID{}).(string)
	return sid
}
