// Package logging provides structured logging for multistore.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, request.id, store.name)
//   - Secret redaction for sensitive field names and value patterns
//   - Per-level sampling (errors are never sampled)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, "req_123")
//	ctx = logging.WithStore(ctx, "billing-api")
//	logger.Info(ctx, "store registered", zap.Int("stores", n))
//
// Output includes the correlation fields:
//
//	{
//	  "ts": "2026-10-18T10:15:30.000Z",
//	  "level": "info",
//	  "msg": "store registered",
//	  "request.id": "req_123",
//	  "store.name": "billing-api",
//	  "stores": 3
//	}
//
// Packages that do not carry a context take a *zap.Logger obtained from
// Logger.Underlying.
//
// # Testing
//
// NewTestLogger returns a logger backed by zaptest/observer with assertion
// helpers:
//
//	logger := logging.NewTestLogger()
//	doSomething(logger.Underlying())
//	logger.AssertLogged(t, zapcore.InfoLevel, "store registered")
package logging
