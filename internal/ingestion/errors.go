package ingestion

import "errors"

// ErrSlotNotFound is returned when no block exists for a slot.
var ErrSlotNotFound = errors.New("slot not found")
