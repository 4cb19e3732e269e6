package domain

import "time"

type DeliveryState string

const (
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)

// DeliveryStatus tracks one requested channel. pending moves to sent or failed
// exactly once; both are terminal.
type DeliveryStatus struct {
	Channel Channel       `json:"channel"`
	State   DeliveryState `json:"status"`
	SentAt  *time.Time    `json:"sentAt,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func SentStatus(c Channel, at time.Time) DeliveryStatus {
	return DeliveryStatus{Channel: c, State: DeliverySent, SentAt: &at}
}

func FailedStatus(c Channel, err error) DeliveryStatus {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return DeliveryStatus{Channel: c, State: DeliveryFailed, Error: msg}
}

func (s DeliveryStatus) Terminal() bool {
	return s.State == DeliverySent || s.State == DeliveryFailed
}
