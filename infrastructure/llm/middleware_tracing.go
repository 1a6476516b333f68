package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// tracedLLM wraps requests in OpenTelemetry spans for distributed tracing.
type tracedLLM struct {
	next        CoreLLM
	serviceName string
}

// TracingMiddleware creates middleware that records each request as a
// span named "llm.request" under the given service name.
func TracingMiddleware(serviceName string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &tracedLLM{next: next, serviceName: serviceName}
	}
}

// DoRequest executes the request inside a trace span.
func (t *tracedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	tracer := otel.Tracer(t.serviceName)
	ctx, span := tracer.Start(ctx, "llm.request")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", t.next.GetModel()),
		attribute.Int("llm.prompt_length", len(prompt)),
	)

	response, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("llm.response_length", len(response)))
	}

	return response, err
}

// GetModel returns the model name from the wrapped implementation.
func (t *tracedLLM) GetModel() string { return t.next.GetModel() }
