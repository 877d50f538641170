// Package server implements the leadbox HTTP server.
//
// Routes:
//   - POST /webhook: GitHub push deliveries; a push to the deploy branch
//     starts the deploy script as a detached process
//   - GET /webhook: endpoint check reporting the project path
//   - GET /health, GET /status: process health and recent deliveries
//   - POST /api/contact, POST /api/demo: lead intake forms
//   - GET /robots.txt, GET /sitemap.xml: generated SEO files
//   - GET /*: the static site, when a static directory is configured
//
// A delivery without a recognisable payload still deploys. Deliveries are
// always acknowledged with 200 once they pass the size and signature
// checks; deployment progress is only visible in the deployment log.
//
// Security features:
//   - Optional HMAC-SHA256 signature verification (webhook.secret)
//   - Payload size limits (1MB webhook, 64KB forms)
//   - Per-IP rate limiting on /api, /status and failed webhook signatures
//   - CORS on /api limited to site.allowed_origins
package server
