package model

import "time"

// ProfileCreated is delivered when a profile document is first written.
type ProfileCreated struct {
	EventID    string    // unique id for idempotency
	UID        string    // created profile id
	ReceivedAt time.Time // delivery time
}
