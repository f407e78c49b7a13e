package repository

import "context"

// Oracle is a language model that turns page text into product JSON.
type Oracle interface {
	Complete(ctx context.Context, system, content string) (string, error)
	Name() string
}
