package tweetstream

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/anatolykoptev/go-tweetstream"

var (
	attrSession = attribute.Key("tweetstream.session")
	attrVariant = attribute.Key("tweetstream.variant")
	attrURL     = attribute.Key("url.full")
	attrMethod  = attribute.Key("http.request.method")
	attrStatus  = attribute.Key("http.response.status_code")
)

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(Version))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
