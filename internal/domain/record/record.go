// Package record defines the keys, tiers and placement options shared by
// every storage component.
package record

import (
	"fmt"
	"time"
)

// DataType classifies the payload a key refers to.
type DataType int

const (
	MedicalRecord DataType = iota
	Metadata
	Content
)

// String returns the wire/storage name of the data type.
func (d DataType) String() string {
	switch d {
	case MedicalRecord:
		return "medical_record"
	case Metadata:
		return "metadata"
	case Content:
		return "content"
	default:
		return "unknown"
	}
}

// ParseDataType converts a storage name back into a DataType.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "medical_record":
		return MedicalRecord, nil
	case "metadata":
		return Metadata, nil
	case "content":
		return Content, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// Tier identifies one storage backend in the hierarchy, fastest first.
type Tier int

const (
	TierMemory Tier = iota
	TierDistributed
	TierRelational
	TierArchive
)

// ReadOrder is the tier sequence a retrieval walks, cheapest first.
var ReadOrder = [4]Tier{TierMemory, TierDistributed, TierRelational, TierArchive}

// String returns the storage name of the tier.
func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDistributed:
		return "distributed"
	case TierRelational:
		return "relational"
	case TierArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ParseTier converts a storage name back into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "memory":
		return TierMemory, nil
	case "distributed":
		return TierDistributed, nil
	case "relational":
		return TierRelational, nil
	case "archive":
		return TierArchive, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

// Key is the composite identifier every operation is keyed by.
type Key struct {
	RecordID string
	Type     DataType
}

// String returns a human-readable form for logs and archive labels.
func (k Key) String() string {
	return k.RecordID + ":" + k.Type.String()
}

// CacheKey returns the flat key used by the cache tiers. NATS KV keys may not
// contain colons, so the type prefix is joined with a dot.
func (k Key) CacheKey() string {
	return k.Type.String() + "." + k.RecordID
}

// Priority declares how aggressively a write should be placed in fast tiers.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

// String returns the wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority converts a wire name back into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high":
		return PriorityHigh, nil
	case "normal", "":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// StoreOptions controls placement and lifetime of a write.
type StoreOptions struct {
	Priority  Priority
	TTL       time.Duration // zero means the configured default
	ForceTier *Tier         // pins the write to exactly one tier
}

// Placement returns the set of tiers a write fans out to.
func (o StoreOptions) Placement() []Tier {
	if o.ForceTier != nil {
		return []Tier{*o.ForceTier}
	}
	switch o.Priority {
	case PriorityHigh:
		return []Tier{TierMemory, TierDistributed, TierRelational}
	case PriorityLow:
		return []Tier{TierRelational, TierArchive}
	default:
		return []Tier{TierDistributed, TierRelational}
	}
}

// CatalogRow is the canonical relational record of where data lives.
// Placement is non-exclusive: one key may have rows in several tiers.
// Payload is set for relational rows, ArchiveHash for archive rows.
type CatalogRow struct {
	Key         Key
	Tier        Tier
	Payload     []byte
	ArchiveHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
