package actions

import (
	"context"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Gateway performs the network operations behind the action creators.
type Gateway interface {
	FetchAll(ctx context.Context) (comment.Collection, error)

	Create(
		ctx context.Context,
		in comment.Input,
	) (comment.Comment, error)

	Delete(
		ctx context.Context,
		id comment.ID,
	) (comment.Target, error)
}
