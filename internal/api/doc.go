// Package api hosts the HTTP server, middleware, and REST handlers.
// Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - /api/sites for site registration and management.
//   - POST /api/sites/{site_id}/crawl for synchronous crawls.
//   - GET /api/sites/{site_id}/llms.txt for the latest generated document.
//   - POST /api/cron/crawl-due for the authenticated due-site sweep.
package api
