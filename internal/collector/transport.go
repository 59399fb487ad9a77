package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
	"cpdash/internal/platform/metrics"
	"cpdash/internal/platform/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

// transport is the rate limited, instrumented HTTP path shared by collectors.
type transport struct {
	platform model.Platform
	client   *http.Client
	limiter  *rate.Limiter
}

func newTransport(platform model.Platform, timeout time.Duration, rps float64) *transport {
	return &transport{
		platform: platform,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// call sends req and hands the raw status and body to decode. The error decode
// returns is the outcome of the call.
func (t *transport) call(ctx context.Context, op string, req *http.Request, decode func(status int, body []byte) error) error {
	ctx, span := tracing.Tracer().Start(ctx, "collector."+op, trace.WithAttributes(
		attribute.String("platform", string(t.platform)),
		attribute.String("operation", op),
	))
	defer span.End()

	err := t.roundTrip(ctx, op, req, decode)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.CollectorRequests.WithLabelValues(string(t.platform), op, outcome).Inc()
	return err
}

func (t *transport) roundTrip(ctx context.Context, op string, req *http.Request, decode func(int, []byte) error) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return t.upstreamErr(op, 0, fmt.Sprintf("rate limiter: %v", err))
	}

	resp, err := t.client.Do(req.WithContext(ctx))
	if err != nil {
		return t.upstreamErr(op, 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return t.upstreamErr(op, resp.StatusCode, fmt.Sprintf("reading body: %v", err))
	}
	return decode(resp.StatusCode, body)
}

func (t *transport) upstreamErr(op string, status int, msg string) error {
	return &common.UpstreamError{Platform: string(t.platform), Operation: op, StatusCode: status, Message: msg}
}
