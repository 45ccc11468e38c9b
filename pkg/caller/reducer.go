package caller

import "github.com/shamank/apicaller-go/pkg/model"

// State is the selection state of one caller instance. A nil Entries means
// no snapshot has been received yet. Whenever Entries is set, Selected is
// either nil (Entries is empty) or points at one of its elements.
//
// State values are treated as immutable: Reduce returns a new value and
// never writes through the slices or pointers of its input.
type State struct {
	Meta     *model.APIMeta
	Encoding *model.APIEncoding
	Entries  []Entry
	Selected *Entry
}

// Event is an input to Reduce. The set of events is closed.
type Event interface {
	isEvent()
}

// MetaUpdated carries a new API snapshot.
type MetaUpdated struct {
	Meta *model.APIMeta
}

// EncodingUpdated carries a new API encoding.
type EncodingUpdated struct {
	Encoding *model.APIEncoding
}

// UserSelected is an explicit selection by entry name.
type UserSelected struct {
	Name string
}

func (MetaUpdated) isEvent()     {}
func (EncodingUpdated) isEvent() {}
func (UserSelected) isEvent()    {}

// Reduce returns the state that follows s after ev. Each event replaces
// only the fields it targets:
//
//   - MetaUpdated replaces Meta, Entries and Selected. The previous
//     selection is kept (by name) when it still exists, otherwise the first
//     entry is selected, or nothing when the snapshot is empty.
//   - EncodingUpdated replaces Encoding.
//   - UserSelected replaces Selected when the name is found in Entries and
//     is a no-op otherwise.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case MetaUpdated:
		entries := Normalize(ev.Meta)
		return State{
			Meta:     ev.Meta,
			Encoding: s.Encoding,
			Entries:  entries,
			Selected: reconcile(s.Selected, entries),
		}
	case EncodingUpdated:
		s.Encoding = ev.Encoding
		return s
	case UserSelected:
		if e := find(s.Entries, ev.Name); e != nil {
			s.Selected = e
		}
		return s
	default:
		return s
	}
}

func reconcile(prev *Entry, entries []Entry) *Entry {
	if prev != nil {
		if e := find(entries, prev.Name); e != nil {
			return e
		}
	}
	if len(entries) > 0 {
		return &entries[0]
	}
	return nil
}
