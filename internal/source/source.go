// Package source defines the list collaborator a list screen reads pages from.
package source

import (
	"context"
	"errors"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
)

var (
	ErrUnknownScreen = screens.ErrUnknownScreen
	ErrInvalidQuery  = errors.New("invalid list query")
)

type Source interface {
	List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error)

func (f Func) List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error) {
	return f(ctx, screen, params)
}

// LastPage is ceil(total/perPage), and never less than 1.
func LastPage(total int, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
