package app

import "context"

type contextKey struct{}

var appContextKey = contextKey{}

// FromContext retrieves the App stored by the root command, or nil.
func FromContext(ctx context.Context) *App {
	a, ok := ctx.Value(appContextKey).(*App)
	if !ok {
		return nil
	}
	return a
}

// IntoContext stores the App for downstream commands.
func IntoContext(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, appContextKey, a)
}
