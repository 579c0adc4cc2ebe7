// Package trigger defines the event sources that launch workflow runs
//
// Every trigger embeds Base, which supplies identity, configuration, the
// ordered callback list and the active flag. Concrete triggers own their
// background mechanism: time and cron triggers run a timer scheduler, api
// and db triggers run a polling loop, file triggers run a filesystem
// watcher, and webhook triggers register with a WebhookHub that the HTTP
// server delivers requests to
package trigger
