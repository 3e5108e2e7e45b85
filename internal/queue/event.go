// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

// PasswordResetQueue carries password-reset email jobs.
const PasswordResetQueue = "mail.password_reset"

// PasswordResetEmail is published when a reset code was stored for an
// account. It holds everything the mail consumer needs to render the email
// without querying the primary database.
type PasswordResetEmail struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	ValidForMinutes int    `json:"valid_for_minutes"`
	RequestedAt     string `json:"requested_at"`
}
