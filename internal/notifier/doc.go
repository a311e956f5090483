// Package notifier delivers score alerts to external channels.
//
// Each channel is a Notifier: a dry-run printer, a Discord-compatible
// webhook, a Telegram bot and Twitter. The Dispatcher fans one alert out to
// every configured sink in the background. Delivery is best-effort: sink
// errors are logged and counted, never retried and never returned to the
// caller.
package notifier
