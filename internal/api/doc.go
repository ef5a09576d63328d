// Package api hosts the operator HTTP server. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status, POST /v1/pause and POST /v1/resume to control the pipeline.
//   - GET /v1/categories and /v1/receivers to inspect routing.
package api
