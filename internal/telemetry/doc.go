// Package telemetry sets up OpenTelemetry tracing and metrics for
// multistore.
//
// When enabled, spans and metrics are exported over OTLP (gRPC or
// HTTP/protobuf) and the providers are installed as the otel globals, so
// store operations and HTTP requests instrumented through otel.Tracer and
// otel.Meter are exported without further wiring.
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc            # or http/protobuf
//	  service_name: "multistore"
//	  sample_rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//	  shutdown_timeout: "5s"
//
// # Error Handling
//
// Telemetry failures never stop the service. If an exporter cannot be
// created the instance is marked degraded, the failure is logged and the
// otel no-op providers stay in place.
//
// # Testing
//
// NewTestTelemetry records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	restore := tt.Install()
//	defer restore()
//	// ... exercise code ...
//	tt.AssertSpanExists(t, "Store.AddDocuments")
package telemetry
