package mailer

// Mailer delivers a transactional email rendered from the named template.
// Booking confirmations are sent from background goroutines, so
// implementations must be safe for concurrent use.
type Mailer interface {
	Send(recipient, templateFile string, data any) error
}
