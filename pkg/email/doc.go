// Package email abstracts transactional email delivery behind the
// EmailSender interface with two implementations: a Postmark client for
// production and a filesystem DevSender for local development.
//
// The billing notifier composes an EmailSender to deliver cancellation
// confirmations; callers treat delivery as best-effort.
package email
