package model

// JSON-RPC methods used between the dashboard client and the daemon.
const (
	// MethodStatus queries the current state of an application.
	MethodStatus = "status"
	// MethodProcessStart is pushed when an application process starts listening.
	MethodProcessStart = "process/start"
	// MethodProcessReload is pushed when an application is rebuilt with new metadata.
	MethodProcessReload = "process/reload"
)

// APIMeta is a snapshot of the API surface of an application.
type APIMeta struct {
	Svcs []*Service `json:"svcs"`
}

// Service is a named collection of remote procedures.
type Service struct {
	Name    string `json:"name"`
	RelPath string `json:"rel_path,omitempty"`
	RPCs    []*RPC `json:"rpcs"`
}

// RPC is a single remote procedure exposed by a Service.
type RPC struct {
	Name        string `json:"name"`
	ServiceName string `json:"service_name,omitempty"`
	// AccessType is "public", "auth" or "private" as reported by the daemon.
	AccessType string `json:"access_type,omitempty"`
	Doc        string `json:"doc,omitempty"`
}

// APIEncoding describes how to encode requests and decode responses for the
// RPCs of an APIMeta snapshot.
type APIEncoding struct {
	// ProtoFiles holds inline .proto sources (filename → content).
	ProtoFiles map[string]string `json:"proto_files,omitempty"`
	// APISource references a tar or tar.gz bundle of .proto files, either
	// "ipfs://<cid>" or "filecoin://<cid>". Used when ProtoFiles is empty.
	APISource string `json:"api_source,omitempty"`
	// Package overrides the proto package used to build the full method path.
	// When empty the package of the file declaring the service is used.
	Package string `json:"package,omitempty"`
}

// StatusParams are the params of a MethodStatus request.
type StatusParams struct {
	AppID string `json:"appID"`
}

// StatusResponse is the result of a MethodStatus request. Every field is
// optional and applied independently when present.
type StatusResponse struct {
	Addr        string       `json:"addr,omitempty"`
	Meta        *APIMeta     `json:"meta,omitempty"`
	APIEncoding *APIEncoding `json:"apiEncoding,omitempty"`
}

// ProcessStart are the params of a MethodProcessStart notification.
type ProcessStart struct {
	AppID string `json:"appID"`
	Addr  string `json:"addr"`
}

// ProcessReload are the params of a MethodProcessReload notification. A
// reload always carries both the metadata and the encoding.
type ProcessReload struct {
	AppID       string       `json:"appID"`
	Meta        *APIMeta     `json:"meta"`
	APIEncoding *APIEncoding `json:"apiEncoding"`
}
