package conversation

import "context"

// Repository provides persistence for conversation turns.
type Repository interface {
	Append(ctx context.Context, turn *Turn) error
	List(ctx context.Context, sessionID string, opts ListOptions) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
}
