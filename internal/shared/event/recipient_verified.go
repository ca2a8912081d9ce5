package event

import "time"

const RecipientVerifiedDestination string = "recipient_verified"
const RecipientVerifiedConsumerNotification string = "recipient_verified_notification"

type RecipientVerifiedMessage struct {
	Recipient  string    `json:"recipient"`
	RequestID  string    `json:"request_id"`
	VerifiedAt time.Time `json:"verified_at"`
}
