package auth

const (
	// AuthorizationHeader carries bearer credentials.
	AuthorizationHeader = "authorization"
	// AppIDHeader identifies the application an invocation targets.
	AppIDHeader = "x-apicaller-app-id"
	// ClientTypeHeader identifies the client making the call.
	ClientTypeHeader = "x-apicaller-client"

	// ClientType is the value sent in ClientTypeHeader.
	ClientType = "apicaller-go"
)
