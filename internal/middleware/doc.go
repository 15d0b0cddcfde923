// Package middleware provides HTTP middleware for the trigger and worker
// endpoints.
//
// It includes:
//   - Request logging in W3C Extended Log Format, tagged with the CloudEvent id
//   - Prometheus request metrics labelled by route template
package middleware
