package rpc

import "context"

// contextKey is the type for context keys to avoid collisions.
type contextKey string

// workspaceKey carries the authenticated caller workspace. It is set by
// the workspace middleware after authentication and is the only way
// handlers learn who is calling; request payloads never carry identity.
const workspaceKey contextKey = "workspace"

// WithWorkspace returns a context carrying the caller workspace.
func WithWorkspace(ctx context.Context, workspace string) context.Context {
	return context.WithValue(ctx, workspaceKey, workspace)
}

// WorkspaceFrom extracts the caller workspace from the context.
func WorkspaceFrom(ctx context.Context) (string, bool) {
	ws, ok := ctx.Value(workspaceKey).(string)
	return ws, ok && ws != ""
}
