// Package outbox relays ledger events written to the outbox table to Kafka.
//
// The ledger store writes an outbox row in the same transaction as each entry.
// The relay polls unpublished rows in write order, publishes them keyed by
// beneficiary so per-beneficiary ordering holds on a partition, and marks them
// published. Delivery is at least once: a crash between publish and mark
// republishes the batch, and consumers dedupe on the entry sequence.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is one unpublished outbox row.
type Record struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
	CreatedAt     time.Time
}
