package models

import "time"

// RemoteEntity is a record as held by the remote store.
type RemoteEntity struct {
	ID              string    `json:"id"`
	SharedGroupID   string    `json:"shared_group_id"`
	OwnerID         string    `json:"owner_id"`
	OriginalOwnerID string    `json:"original_owner_id"`
	Name            string    `json:"name"`
	Payload         Payload   `json:"payload"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RejectedItem identifies one record of a batch create refused by the remote.
type RejectedItem struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchAck is the acknowledgement of a batch create. It carries no ids for
// the created records.
type BatchAck struct {
	Accepted int            `json:"accepted"`
	Rejected []RejectedItem `json:"rejected,omitempty"`
}

// RejectedSet returns the rejected indexes as a set.
func (a *BatchAck) RejectedSet() map[int]string {
	out := make(map[int]string, len(a.Rejected))
	for _, r := range a.Rejected {
		out[r.Index] = r.Reason
	}
	return out
}
