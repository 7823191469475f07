package domain

import "fmt"

// FilterConfig is the immutable per-run filter configuration
type FilterConfig struct {
	// AllowedSenders restricts admission to these sender ids; nil means all.
	AllowedSenders map[int64]struct{}
	AllowedTypes   map[MessageType]struct{}
	TargetYear     int
	// IncludeSelf controls whether the chat owner's own messages are admitted.
	IncludeSelf bool
}

// IDSet is a read-only membership query over processed message ids.
// The resume ledger satisfies it.
type IDSet interface {
	Contains(id int64) bool
}

// Validate checks the filter configuration before a run starts
func (c FilterConfig) Validate() error {
	if len(c.AllowedTypes) == 0 {
		return fmt.Errorf("%w: allowed-type set is empty", ErrConfiguration)
	}
	for t := range c.AllowedTypes {
		if !ValidateMessageType(t) {
			return fmt.Errorf("%w: unknown message type %q", ErrConfiguration, t)
		}
	}
	if c.TargetYear <= 0 {
		return fmt.Errorf("%w: target year %d", ErrConfiguration, c.TargetYear)
	}
	return nil
}

// AdmitPreview applies the type, year and self-exclusion rules only.
// Dry-runs use it: they consult neither the sender allow-set nor the ledger,
// so the preview reflects total matching volume.
func (c FilterConfig) AdmitPreview(rec MessageRecord, ownerID int64) bool {
	if _, ok := c.AllowedTypes[rec.Type]; !ok {
		return false
	}
	if rec.Timestamp.UTC().Year() != c.TargetYear {
		return false
	}
	if !c.IncludeSelf && ownerID != 0 && rec.SenderID == ownerID {
		return false
	}
	return true
}

// Admit applies all filter rules, including the sender allow-set and the
// processed-id exclusion. It never mutates the set it is given.
func (c FilterConfig) Admit(rec MessageRecord, ownerID int64, processed IDSet) bool {
	if processed != nil && processed.Contains(rec.ID) {
		return false
	}
	if !c.AdmitPreview(rec, ownerID) {
		return false
	}
	if c.AllowedSenders != nil {
		// An absent sender id never matches a concrete allow-set.
		if rec.SenderID == 0 {
			return false
		}
		if _, ok := c.AllowedSenders[rec.SenderID]; !ok {
			return false
		}
	}
	return true
}
