// Package notify delivers transition events to configured webhook targets
// (Slack-shaped or generic HTTP JSON).
//
// Delivery is fire-and-forget from the engine's perspective: failures are
// logged and never propagate into the refresh path, and each FailureStarted
// or Recovered event produces exactly one delivery attempt per target.
// Webhook URLs are resolved from environment variables so secrets stay out
// of the config file.
package notify
