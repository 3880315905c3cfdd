package expressions

import "context"

// Repository stores which users watch which expressions
type Repository interface {
	GetAll(ctx context.Context) (map[Expression][]string, error)
	Insert(ctx context.Context, expression Expression, userID string) error
	Remove(ctx context.Context, expression Expression, userID string) error
	ExpressionsOf(ctx context.Context, userID string) ([]Expression, error)
}
