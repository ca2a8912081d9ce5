// Package jwt verifies the bearer tokens that operators present to the
// administration endpoints, and signs them for tooling and tests.
package jwt
