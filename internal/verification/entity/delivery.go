package entity

import "time"

type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "queued"
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// Email is a rendered message ready for the gateway.
type Email struct {
	Recipient string
	Template  string
	Subject   string
	HTMLBody  string
	TextBody  string
}

type DeliveryLog struct {
	ID           int64
	Recipient    string
	Subject      string
	Template     string
	Status       DeliveryStatus
	Provider     string
	MessageID    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UpdateDeliveryLog struct {
	ID           int64
	Status       DeliveryStatus
	MessageID    string
	ErrorMessage string
	UpdatedAt    time.Time
}
