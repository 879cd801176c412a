package model

import (
	"sort"
	"strconv"
	"time"

	"arrodes-economy/internal/cache"

	"github.com/goccy/go-json"
)

// TimedAsset is something growing towards FinishingTime (a plant, a bee, an
// egg). Its reward producer is resolved from Kind.
type TimedAsset struct {
	Slot          uint64    `json:"slot"`
	Owner         string    `json:"owner"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	FinishingTime time.Time `json:"finishing_time"`
	Completed     bool      `json:"completed"`
	Pet           *PetState `json:"pet,omitempty"`
}

// PetState is the progression carried by a pet asset from egg onwards.
type PetState struct {
	Species       string `json:"species"`
	Level         int    `json:"level"`
	Experience    int    `json:"experience"`
	ExperienceCap int    `json:"experience_cap"`
}

// NewPetState returns a level 1 pet of species.
func NewPetState(species string) *PetState {
	return &PetState{Species: species, Level: 1, ExperienceCap: 100}
}

func (a TimedAsset) clone() TimedAsset {
	if a.Pet != nil {
		pet := *a.Pet
		a.Pet = &pet
	}
	return a
}

// Ready reports whether the asset can be resolved at now.
func (a TimedAsset) Ready(now time.Time) bool {
	return !a.Completed && !a.FinishingTime.After(now)
}

// TimeLeft returns the remaining growth time, never negative.
func (a TimedAsset) TimeLeft(now time.Time) time.Duration {
	if d := a.FinishingTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// GrowthStorage is one owner's collection of timed assets, keyed by a slot id
// that only ever increases.
type GrowthStorage struct {
	cache.DirtyFlag

	id       string
	nextSlot uint64
	assets   map[uint64]*TimedAsset
}

// NewGrowthStorage returns an empty storage for owner.
func NewGrowthStorage(owner string) *GrowthStorage {
	return &GrowthStorage{id: owner, assets: make(map[uint64]*TimedAsset)}
}

func (g *GrowthStorage) ID() string { return g.id }

func (g *GrowthStorage) Len() int { return len(g.assets) }

// NextSlot returns the slot id the next Append will use.
func (g *GrowthStorage) NextSlot() uint64 { return g.nextSlot }

// Append stores asset under a fresh slot and returns it.
func (g *GrowthStorage) Append(asset TimedAsset) TimedAsset {
	asset = asset.clone()
	asset.Slot = g.nextSlot
	asset.Owner = g.id
	g.nextSlot++
	g.assets[asset.Slot] = &asset
	g.MarkDirty()
	return asset.clone()
}

// Restore puts a previously detached asset back under its own slot, undoing
// Remove or MarkCompleted.
func (g *GrowthStorage) Restore(asset TimedAsset) {
	asset = asset.clone()
	asset.Owner = g.id
	g.assets[asset.Slot] = &asset
	if asset.Slot >= g.nextSlot {
		g.nextSlot = asset.Slot + 1
	}
	g.MarkDirty()
}

// Remove detaches the asset in slot.
func (g *GrowthStorage) Remove(slot uint64) (TimedAsset, bool) {
	a, ok := g.assets[slot]
	if !ok {
		return TimedAsset{}, false
	}
	delete(g.assets, slot)
	g.MarkDirty()
	return a.clone(), true
}

// MarkCompleted flags the asset in slot as resolved while keeping it stored.
func (g *GrowthStorage) MarkCompleted(slot uint64) (TimedAsset, bool) {
	a, ok := g.assets[slot]
	if !ok {
		return TimedAsset{}, false
	}
	a.Completed = true
	g.MarkDirty()
	return a.clone(), true
}

// Asset returns a copy of the asset in slot.
func (g *GrowthStorage) Asset(slot uint64) (TimedAsset, bool) {
	a, ok := g.assets[slot]
	if !ok {
		return TimedAsset{}, false
	}
	return a.clone(), true
}

// Snapshot returns copies of all assets in slot (insertion) order.
func (g *GrowthStorage) Snapshot() []TimedAsset {
	slots := make([]uint64, 0, len(g.assets))
	for s := range g.assets {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	out := make([]TimedAsset, 0, len(slots))
	for _, s := range slots {
		out = append(out, g.assets[s].clone())
	}
	return out
}

// assetRecord stores finishing_time as absolute Unix seconds.
type assetRecord struct {
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	FinishingTime int64     `json:"finishing_time"`
	Completed     bool      `json:"completed,omitempty"`
	Pet           *PetState `json:"pet,omitempty"`
}

type growthRecord struct {
	ID       string                 `json:"id"`
	NextSlot uint64                 `json:"next_slot"`
	Storage  map[string]assetRecord `json:"storage"`
}

func (g *GrowthStorage) MarshalJSON() ([]byte, error) {
	rec := growthRecord{
		ID:       g.id,
		NextSlot: g.nextSlot,
		Storage:  make(map[string]assetRecord, len(g.assets)),
	}
	for slot, a := range g.assets {
		rec.Storage[strconv.FormatUint(slot, 10)] = assetRecord{
			Kind:          a.Kind,
			Name:          a.Name,
			FinishingTime: a.FinishingTime.Unix(),
			Completed:     a.Completed,
			Pet:           a.Pet,
		}
	}
	return json.Marshal(rec)
}

func (g *GrowthStorage) UnmarshalJSON(data []byte) error {
	var rec growthRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	g.id = rec.ID
	g.nextSlot = rec.NextSlot
	g.assets = make(map[uint64]*TimedAsset, len(rec.Storage))
	for key, ar := range rec.Storage {
		slot, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return err
		}
		g.assets[slot] = &TimedAsset{
			Slot:          slot,
			Owner:         rec.ID,
			Kind:          ar.Kind,
			Name:          ar.Name,
			FinishingTime: time.Unix(ar.FinishingTime, 0),
			Completed:     ar.Completed,
			Pet:           ar.Pet,
		}
		// Older records may lack next_slot; never hand out a used slot.
		if slot >= g.nextSlot {
			g.nextSlot = slot + 1
		}
	}
	return nil
}

// GrowthCodec stores growth storages as JSON.
type GrowthCodec struct{}

func (GrowthCodec) New(id string) *GrowthStorage {
	return NewGrowthStorage(id)
}

func (GrowthCodec) Decode(id string, record []byte) (*GrowthStorage, error) {
	g := NewGrowthStorage(id)
	if err := json.Unmarshal(record, g); err != nil {
		return nil, err
	}
	if g.id == "" {
		g.id = id
	}
	for _, a := range g.assets {
		a.Owner = g.id
	}
	return g, nil
}

func (GrowthCodec) Encode(g *GrowthStorage) ([]byte, error) {
	return json.Marshal(g)
}

var _ cache.Codec[*GrowthStorage] = GrowthCodec{}
