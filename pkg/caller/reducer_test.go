package caller

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shamank/apicaller-go/pkg/model"
)

func single(svc, rpc string) *model.APIMeta {
	return &model.APIMeta{Svcs: []*model.Service{{Name: svc, RPCs: []*model.RPC{{Name: rpc}}}}}
}

func TestReduce_MetaSelectsFirstEntry(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: meta(map[string][]string{"B": {"bar"}, "A": {"foo", "baz"}})})

	if s.Selected == nil || s.Selected.Name != "A.baz" {
		t.Fatalf("Selected = %v, want A.baz", s.Selected)
	}
	if s.Selected != &s.Entries[0] {
		t.Fatal("Selected must point at an element of Entries")
	}
}

func TestReduce_SelectionPreservedByName(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: meta(map[string][]string{"A": {"bar", "foo"}})})
	s = Reduce(s, UserSelected{Name: "A.foo"})
	prev := s.Selected

	// A freshly decoded snapshot never shares pointers with the previous one.
	s = Reduce(s, MetaUpdated{Meta: meta(map[string][]string{"A": {"bar", "foo"}, "C": {"new"}})})

	if s.Selected == nil || s.Selected.Name != "A.foo" {
		t.Fatalf("Selected = %v, want A.foo", s.Selected)
	}
	if s.Selected.RPC == prev.RPC {
		t.Fatal("expected Selected to reference the new snapshot")
	}
}

func TestReduce_SelectionFallback(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: meta(map[string][]string{"A": {"foo"}, "Z": {"zed"}})})
	s = Reduce(s, UserSelected{Name: "A.foo"})

	s = Reduce(s, MetaUpdated{Meta: meta(map[string][]string{"Z": {"zed"}, "M": {"mid", "alpha"}})})

	if s.Selected == nil || s.Selected.Name != "M.alpha" {
		t.Fatalf("Selected = %v, want alphabetically first M.alpha", s.Selected)
	}
}

func TestReduce_EmptySnapshot(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: single("A", "foo")})
	s = Reduce(s, MetaUpdated{Meta: &model.APIMeta{}})

	if s.Entries == nil || len(s.Entries) != 0 {
		t.Fatalf("Entries = %v, want empty non-nil", s.Entries)
	}
	if s.Selected != nil {
		t.Fatalf("Selected = %v, want nil", s.Selected)
	}
}

func TestReduce_SelectMissIsNoop(t *testing.T) {
	enc := &model.APIEncoding{}
	s := Reduce(State{Encoding: enc}, MetaUpdated{Meta: meta(map[string][]string{"A": {"foo", "bar"}})})
	s = Reduce(s, UserSelected{Name: "A.foo"})
	before := s

	after := Reduce(s, UserSelected{Name: "does.not.exist"})

	if after.Selected != before.Selected {
		t.Fatal("Selected changed on a missing name")
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestReduce_SelectWithoutEntries(t *testing.T) {
	s := Reduce(State{}, UserSelected{Name: "A.foo"})
	if s.Selected != nil || s.Entries != nil {
		t.Fatalf("expected empty state, got %+v", s)
	}
}

func TestReduce_SelectHit(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: meta(map[string][]string{"A": {"foo", "bar"}})})
	s = Reduce(s, UserSelected{Name: "A.foo"})
	if s.Selected == nil || s.Selected.Name != "A.foo" {
		t.Fatalf("Selected = %v, want A.foo", s.Selected)
	}
}

func TestReduce_EncodingIndependence(t *testing.T) {
	s := Reduce(State{}, MetaUpdated{Meta: meta(map[string][]string{"A": {"foo", "bar"}})})
	s = Reduce(s, UserSelected{Name: "A.foo"})

	enc := &model.APIEncoding{ProtoFiles: map[string]string{"a.proto": "syntax = \"proto3\";"}}
	next := Reduce(s, EncodingUpdated{Encoding: enc})

	if next.Encoding != enc {
		t.Fatal("Encoding not replaced")
	}
	if next.Meta != s.Meta || next.Selected != s.Selected {
		t.Fatal("EncodingUpdated changed Meta or Selected")
	}
	if diff := cmp.Diff(names(s.Entries), names(next.Entries)); diff != "" {
		t.Fatalf("EncodingUpdated changed Entries:\n%s", diff)
	}
}

func TestReduce_MetaKeepsEncoding(t *testing.T) {
	enc := &model.APIEncoding{APISource: "ipfs://QmSource"}
	s := Reduce(State{}, EncodingUpdated{Encoding: enc})
	s = Reduce(s, MetaUpdated{Meta: single("A", "foo")})

	if s.Encoding != enc {
		t.Fatal("MetaUpdated clobbered Encoding")
	}
	if !Ready(s) {
		t.Fatal("expected state to be ready")
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	md := meta(map[string][]string{"A": {"foo", "bar"}})
	s := Reduce(State{}, MetaUpdated{Meta: md})
	s = Reduce(s, UserSelected{Name: "A.foo"})
	entriesBefore := names(s.Entries)
	selectedBefore := *s.Selected

	_ = Reduce(s, MetaUpdated{Meta: single("B", "bar")})
	_ = Reduce(s, UserSelected{Name: "A.bar"})

	if diff := cmp.Diff(entriesBefore, names(s.Entries)); diff != "" {
		t.Fatalf("input Entries mutated:\n%s", diff)
	}
	if s.Selected.Name != selectedBefore.Name {
		t.Fatalf("input Selected mutated: %s", s.Selected.Name)
	}
	if len(md.Svcs) != 1 || len(md.Svcs[0].RPCs) != 2 {
		t.Fatal("snapshot mutated")
	}
}
