package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// query parameters whose values never leave the process in logs or spans.
var secretParams = []string{"access_token"}

// canvas calendar feeds are authorized by an opaque token in the final
// path segment, e.g. /feeds/calendars/course_<token>.ics.
const feedPathMarker = "/feeds/"

// RedactURL masks secret query parameter values and the token segment of
// feed paths in a raw url, it returns the input untouched if it cannot be
// parsed.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	changed := false

	query := u.Query()
	for _, key := range secretParams {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}

	if strings.Contains(u.Path, feedPathMarker) {
		dir, last := path.Split(u.Path)
		if last != "" {
			u.Path = dir + "REDACTED"
			u.RawPath = ""
			changed = true
		}
	}

	if !changed {
		return raw
	}
	return u.String()
}

// RedactError masks the url carried by a *url.Error in place, transport
// errors returned by resty otherwise print the raw request url.
func RedactError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = RedactURL(uerr.URL)
	}
	return err
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	startTime time.Time
}

// InstrumentResty starts a span for every request made by client and
// logs each request and response at debug level.
func InstrumentResty(client *resty.Client, tracerName string) {
	tracer := otel.Tracer(tracerName)

	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
		ctx = context.WithValue(ctx, reqCtxKey, reqCtx{startTime: time.Now()})
		req.SetContext(ctx)
		return nil
	}
}

func elapsed(ctx context.Context) time.Duration {
	rc, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return 0
	}
	return time.Since(rc.startTime)
}

func requestAttributes(req *resty.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("http.url", RedactURL(req.URL)),
	}
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(requestAttributes(res.Request)...)
	span.SetAttributes(
		attribute.Int("http.status_code", res.StatusCode()),
		attribute.Int("http.response_content_length", len(res.Body())),
	)
	if res.StatusCode() >= 400 {
		span.SetStatus(codes.Error, res.Status())
	}

	slog.DebugContext(
		ctx, "http response",
		"method", res.Request.Method,
		"url", RedactURL(res.Request.URL),
		"status", res.StatusCode(),
		"duration", elapsed(ctx).String(),
	)
	return nil
}

func onError(req *resty.Request, err error) {
	err = RedactError(err)
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(requestAttributes(req)...)
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	slog.DebugContext(
		ctx, "http request failed",
		"method", req.Method,
		"url", RedactURL(req.URL),
		"duration", elapsed(ctx).String(),
		"err", err,
	)
}
