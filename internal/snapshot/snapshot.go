package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/formship/formship/internal/forms"
)

// Snapshot is the immutable respondent-facing view of every published form.
// Draft and closed forms never appear here. Readers get a consistent view via
// an atomic pointer swap; a snapshot is never mutated after Update.
type Snapshot struct {
	ETag      string                `json:"etag"`
	Forms     map[string]forms.Form `json:"forms"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

var current unsafe.Pointer // *Snapshot

// Load returns the current snapshot. Before the first Update it returns an
// empty snapshot rather than nil so callers never need a nil check.
func Load() *Snapshot {
	ptr := atomic.LoadPointer(&current)
	if ptr == nil {
		return &Snapshot{ETag: "", Forms: map[string]forms.Form{}, UpdatedAt: time.Now().UTC()}
	}
	return (*Snapshot)(ptr)
}

func store(s *Snapshot) { atomic.StorePointer(&current, unsafe.Pointer(s)) }

// BuildFromForms builds a snapshot from a full form listing, keeping only
// published forms. The ETag is a weak hash over the canonical JSON encoding,
// deterministic for identical content.
func BuildFromForms(all []forms.Form) *Snapshot {
	published := make(map[string]forms.Form, len(all))
	for _, f := range all {
		if f.Status == forms.StatusPublished {
			published[f.ID] = f
		}
	}

	// json.Marshal sorts map keys, but hash over an explicitly ordered slice
	// so the encoding stays canonical if the shape ever changes.
	ids := make([]string, 0, len(published))
	for id := range published {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := xxhash.New()
	for _, id := range ids {
		blob, _ := json.Marshal(published[id])
		_, _ = h.Write([]byte(id))
		_, _ = h.Write(blob)
	}
	etag := fmt.Sprintf(`W/"%016x"`, h.Sum64())

	return &Snapshot{ETag: etag, Forms: published, UpdatedAt: time.Now().UTC()}
}

// Update swaps in a new snapshot and notifies change listeners.
func Update(s *Snapshot) {
	store(s)
	announce(Change{ETag: s.ETag, Forms: len(s.Forms), UpdatedAt: s.UpdatedAt})
}
