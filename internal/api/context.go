// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth state and by handlers to read it.
package api

type contextKey int

const (
	ctxUserID      contextKey = iota // uuid.UUID — authenticated user
	ctxWorkspace                     // *store.Workspace — workspace from URL path param
	ctxRole                          // authz.Role — effective workspace role for this request
	ctxBoard                         // *store.Board — board from URL path param
	ctxBoardAccess                   // authz.BoardAccess — resolved board access for this request
)
