// Package main hosts the adfiller service entrypoint.
//
// The service walks the classified site's ad identifiers on a fixed
// interval. Each tick probes one id, advancing with a growing step while ads
// are stale and holding back while they are fresh. Stale ads are rendered
// and delivered to every receiver whose category covers the ad's
// subcategory, then optionally published to Pub/Sub and archived as JSON.
//
// Operational notes:
//   - The last distributed id is checkpointed to a file, Redis or Postgres so a
//     restart resumes the walk.
//   - The ops API exposes /healthz, /readyz, /metrics and /v1 status, pause,
//     resume, categories and receivers.
//   - Configure with a YAML file passed via -config, overridden by ADFILLER_*
//     environment variables (e.g. ADFILLER_DELIVERY_TOKEN).
//   - SIGINT/SIGTERM stop the scheduler after the in-flight tick and drain the
//     HTTP server.
package main
