// Package handlers provides the HTTP handlers of the media-deriver service.
//
// It includes handlers for:
//   - Triggers: single-asset and bulk folder requests, in any CloudEvent shape
//   - Remote worker invocations, which are single-asset triggers
//   - Health, liveness, readiness, and version
package handlers
