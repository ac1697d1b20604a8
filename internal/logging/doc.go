// Package logging provides structured logging with OpenTelemetry integration.
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic context field injection (trace_id, request.id, user.id)
//   - Secret redaction at the encoder level
//   - Level-aware sampling (errors never sampled)
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	ctx = logging.WithUserID(ctx, user.ID)
//	logger.Info(ctx, "feed assembled", zap.Int("count", len(articles)))
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	svc := ingest.NewService(store, tl.Logger, nil)
//	tl.AssertLogged(t, zapcore.WarnLevel, "article persist failed")
package logging
