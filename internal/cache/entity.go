package cache

// Entity is anything the cache can hold. Every mutating method of an entity
// must call MarkDirty so the next flush writes it back.
type Entity interface {
	IsDirty() bool
	MarkDirty()
	ClearDirty()
}

// DirtyFlag is embedded by entities to satisfy Entity.
type DirtyFlag struct {
	dirty bool
}

func (d *DirtyFlag) IsDirty() bool { return d.dirty }

func (d *DirtyFlag) MarkDirty() { d.dirty = true }

func (d *DirtyFlag) ClearDirty() { d.dirty = false }

// Codec converts an entity kind to and from its stored record.
type Codec[T Entity] interface {
	// New constructs and seeds the default entity for an id absent from the store.
	New(id string) T

	// Decode hydrates a stored record.
	Decode(id string, record []byte) (T, error)

	// Encode serializes the entity for the store.
	Encode(entity T) ([]byte, error)
}
