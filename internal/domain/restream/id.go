package restream

import "github.com/google/uuid"

// ID is a stable, opaque identity assigned on creation and immutable
// thereafter. Shared by Restream, Input, InputEndpoint, Output and Mixin.
type ID string

// NewID mints a fresh random identity.
func NewID() ID { return ID(uuid.NewString()) }

// Empty reports whether id was never assigned (used to distinguish create
// from update in set_* upsert mutations).
func (id ID) Empty() bool { return id == "" }
