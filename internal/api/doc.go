// Package api hosts the optional status server for a running scrape. Routes:
//   - GET /healthz for liveness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for a JSON snapshot of the run summary.
package api
