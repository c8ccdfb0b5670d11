// Package telemetry provides OpenTelemetry instrumentation for collabd.
//
// # Overview
//
// This package implements distributed tracing and OTLP metrics export
// using the OpenTelemetry Go SDK. Data is exported to an OTEL Collector
// over gRPC or http/protobuf.
//
// # Usage
//
// Create a telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use a tracer:
//
//	tracer := tel.Tracer("collabd/objectstore")
//	ctx, span := tracer.Start(ctx, "objectstore.get")
//	defer span.End()
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  service_name: "collabd"
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures do not crash the service. If providers cannot be
// initialized the instance degrades gracefully to no-op tracers and
// meters.
package telemetry
