package domain

import "time"

type ChangeKind string

const (
	ChangeInsert  ChangeKind = "insert"
	ChangeUpdate  ChangeKind = "update"
	ChangeDelete  ChangeKind = "delete"
	ChangeSignOut ChangeKind = "signout"
)

const CollectionCartLines = "cart_lines"

// ChangeEvent notifies subscribers that rows keyed by Key changed.
// Consumers re-read state instead of applying the event.
type ChangeEvent struct {
	Collection string     `json:"collection"`
	Kind       ChangeKind `json:"kind"`
	Key        string     `json:"key"`
	RowID      string     `json:"rowId,omitempty"`
	At         time.Time  `json:"at"`
}
