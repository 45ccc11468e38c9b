package caller

import "github.com/shamank/apicaller-go/pkg/model"

// Placeholder is shown while the caller is not ready.
const Placeholder = "Create an endpoint to view it here!"

// View is what a renderer receives. When Ready is false only Placeholder is
// set.
type View struct {
	Ready       bool
	Placeholder string

	AppID    string
	Addr     string
	Meta     *model.APIMeta
	Encoding *model.APIEncoding
	Service  *model.Service
	RPC      *model.RPC

	// Entries and Selected feed the endpoint selector.
	Entries  []Entry
	Selected *Entry
}

// Ready reports whether the metadata, the encoding and a selection are all
// present.
func Ready(s State) bool {
	return s.Meta != nil && s.Encoding != nil && s.Selected != nil
}

// Present derives the View of s for the application appID listening on addr.
func Present(s State, appID, addr string) View {
	if !Ready(s) {
		return View{Placeholder: Placeholder}
	}
	return View{
		Ready:    true,
		AppID:    appID,
		Addr:     addr,
		Meta:     s.Meta,
		Encoding: s.Encoding,
		Service:  s.Selected.Service,
		RPC:      s.Selected.RPC,
		Entries:  s.Entries,
		Selected: s.Selected,
	}
}
