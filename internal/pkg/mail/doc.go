// Package mail defines the contract for sending email messages and ships two
// providers: SMTP (gomail) and the Brevo transactional email API.
//
// Use cases work with the Mail interface and Message payload only; the
// provider is picked at start-up from configuration.
package mail
