// Package messaging carries domain events between modules over a pluggable
// broker. Drivers exist for NSQ, Kafka, NATS, Google Pub/Sub and an
// in-process broker for single instance deployments and tests.
//
// Every driver delivers at least once. Handlers must tolerate duplicates.
package messaging
