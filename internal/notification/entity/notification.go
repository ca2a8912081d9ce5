package entity

import (
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/valueobject"
)

type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "queued"
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// Metadata keys stored with every welcome delivery log.
const (
	MetaEvent     = "event"
	MetaRequestID = "request_id"
)

type DeliveryLog struct {
	ID        int64
	Recipient string
	Subject   string
	Template  string
	Status    DeliveryStatus
	Provider  string
	Metadata  valueobject.JSONMap
	CreatedAt time.Time
}

type UpdateDeliveryLog struct {
	ID           int64
	Status       DeliveryStatus
	MessageID    string
	ErrorMessage string
	UpdatedAt    time.Time
}
