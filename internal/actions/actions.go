// Package actions contains the action creators dispatched by the view.
package actions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/comment-widget/internal/async"
	"github.com/i-melnichenko/comment-widget/internal/comment"
)

// Creators builds actions whose payload is a pending gateway call.
// Every method returns immediately; nothing is awaited here.
type Creators struct {
	gateway Gateway
	tracer  oteltrace.Tracer

	// Timeout bounds each gateway call. Zero means no timeout.
	Timeout time.Duration
}

// NewCreators returns action creators backed by gw.
func NewCreators(gw Gateway, tracer oteltrace.Tracer) (*Creators, error) {
	if gw == nil {
		return nil, fmt.Errorf("actions: nil gateway")
	}
	if tracer == nil {
		return nil, fmt.Errorf("actions: nil tracer")
	}
	return &Creators{gateway: gw, tracer: tracer}, nil
}

// Load returns a load action pending on FetchAll.
func (c *Creators) Load() comment.Action {
	return comment.Action{
		Kind: comment.KindLoad,
		Payload: async.Go(func() (comment.Collection, error) {
			ctx, span, cancel := c.startCall("actions.Load")
			defer cancel()
			defer span.End()

			out, err := c.gateway.FetchAll(ctx)
			spanRecordError(span, err)
			span.SetAttributes(attribute.Int("comments.count", len(out)))
			return out, err
		}),
	}
}

// Create returns a create action pending on Gateway.Create.
// The input is forwarded as is: validation and author defaulting belong to the form.
func (c *Creators) Create(in comment.Input) comment.Action {
	return comment.Action{
		Kind: comment.KindCreate,
		Payload: async.Go(func() (comment.Comment, error) {
			ctx, span, cancel := c.startCall(
				"actions.Create",
				attribute.Int("comment.body.bytes", len(in.Body)),
			)
			defer cancel()
			defer span.End()

			out, err := c.gateway.Create(ctx, in)
			spanRecordError(span, err)
			span.SetAttributes(attribute.Int64("comment.id", int64(out.ID)))
			return out, err
		}),
	}
}

// Remove returns a delete action pending on Gateway.Delete.
func (c *Creators) Remove(target comment.Target) comment.Action {
	return comment.Action{
		Kind: comment.KindDelete,
		Payload: async.Go(func() (comment.Target, error) {
			ctx, span, cancel := c.startCall(
				"actions.Remove",
				attribute.Int64("comment.id", int64(target.ID)),
			)
			defer cancel()
			defer span.End()

			out, err := c.gateway.Delete(ctx, target.ID)
			spanRecordError(span, err)
			return out, err
		}),
	}
}

func (c *Creators) startCall(name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span, context.CancelFunc) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	ctx, span := c.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span, cancel
}

func spanRecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
