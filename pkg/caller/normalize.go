package caller

import (
	"slices"
	"strings"

	"github.com/shamank/apicaller-go/pkg/model"
)

// Entry is a single addressable RPC. Name is the identity used to correlate
// entries across snapshots; Service and RPC point into the snapshot the
// entry was built from.
type Entry struct {
	Service *model.Service
	RPC     *model.RPC
	Name    string
}

// EntryName returns the composite name of an RPC within a service.
func EntryName(svc, rpc string) string {
	return svc + "." + rpc
}

// Normalize flattens md into one Entry per (service, rpc) pair sorted by
// name. Services or RPCs that are nil or unnamed are skipped, as are repeated
// names after their first occurrence. The result is never nil.
func Normalize(md *model.APIMeta) []Entry {
	entries := []Entry{}
	if md == nil {
		return entries
	}

	seen := make(map[string]struct{})
	for _, svc := range md.Svcs {
		if svc == nil || svc.Name == "" {
			continue
		}
		for _, rpc := range svc.RPCs {
			if rpc == nil || rpc.Name == "" {
				continue
			}
			name := EntryName(svc.Name, rpc.Name)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			entries = append(entries, Entry{Service: svc, RPC: rpc, Name: name})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries
}

// find returns a pointer to the entry called name, or nil.
func find(entries []Entry, name string) *Entry {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i]
		}
	}
	return nil
}
