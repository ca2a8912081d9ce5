// Package clock is the time source for code expiry and resend throttling.
// Tests drive it with Fake instead of sleeping.
package clock
