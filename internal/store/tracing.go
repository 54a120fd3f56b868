package store

import (
	"math"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/i-melnichenko/comment-widget/internal/comment"
)

func spanRecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}

func kindAttr(k comment.Kind) attribute.KeyValue {
	return attribute.String("store.action.kind", string(k))
}

func versionAttr(v uint64) attribute.KeyValue {
	if v > math.MaxInt64 {
		return attribute.Int64("store.version", math.MaxInt64)
	}
	return attribute.Int64("store.version", int64(v))
}
