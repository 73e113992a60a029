// Package notifier delivers rendered production alerts.
//
// Email goes through the Mailjet v3.1 send API with basic auth. A Twitter
// notifier posts a short summary, and a dry-run notifier prints the message
// instead of sending it. Multi fans one message out to several channels.
package notifier
