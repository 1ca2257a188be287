package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// StacktraceHandler decorates an slog handler so that a record carrying an
// error attribute (see ErrAttr) also emits the cockroachdb/errors stacktrace
// under the StacktraceAttrKey attribute. Records without an error attribute
// pass through unchanged.
type StacktraceHandler struct {
	next slog.Handler
}

// NewStacktraceHandler wraps the given slog handler.
func NewStacktraceHandler(next slog.Handler) *StacktraceHandler {
	return &StacktraceHandler{next: next}
}

func (h *StacktraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *StacktraceHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			trace = stacktraceOf(err)
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.next.Handle(ctx, r)
}

func (h *StacktraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &StacktraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *StacktraceHandler) WithGroup(name string) slog.Handler {
	return &StacktraceHandler{next: h.next.WithGroup(name)}
}

// stacktraceOf pulls out the stack information cockroachdb/errors captured
// when the error was constructed. Errors without it yield "".
func stacktraceOf(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) == 0 {
		return ""
	}
	return details[0]
}
