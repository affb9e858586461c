package downstream

import "context"

type ctxKeySkipRefresh struct{}

// SkipRefresh marks requests whose 401 is an answer, not an expired token:
// login, register and the refresh call itself.
func SkipRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeySkipRefresh{}, true)
}

func skipsRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeySkipRefresh{}).(bool)
	return v
}
