// Package main hosts the jobscraper entrypoint.
//
// Architecture overview:
//   - Dispatcher: pages 1..crawler.max_pages are issued in ascending order to a bounded errgroup sized by
//     crawler.concurrency. Issuance stops at the first page the site answers with 404 or on SIGINT/SIGTERM;
//     pages already in flight finish.
//   - Worker: each page is fetched through the Colly-based fetcher (randomized politeness delay, optional per-host
//     token bucket, transport retries for connection errors and a bounded page-level retry loop), parsed with
//     goquery, and its records are persisted as one transaction.
//   - Storage: store.driver selects postgres (pgx), mysql (gorm), sqlite (modernc) or memory. The sink pings its
//     database at startup so bad credentials fail before any page is fetched.
//   - Observability: zap logs carry the run ID and page number; Prometheus counters are served on /metrics, and
//     /status returns the live run summary when server.addr is set.
//
// Exit status is non-zero when setup fails or when failed/(done+failed) exceeds crawler.failure_threshold.
//
// Quick checklist:
//   - Configure env vars: JOBSCRAPER_CRAWLER_BASE_URL, JOBSCRAPER_STORE_DRIVER, JOBSCRAPER_STORE_DSN,
//     JOBSCRAPER_CRAWLER_CONCURRENCY, JOBSCRAPER_SERVER_ADDR.
//   - Run locally: go run ./cmd/jobscraper --config config.yaml, or --dry-run to keep records in memory.
package main
