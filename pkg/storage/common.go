// Package storage retrieves API sources (tar or tar.gz bundles of .proto
// files) referenced by an application's API encoding. Supported sources are
// IPFS (via a Kubo HTTP API client) and the Lighthouse gateway for Filecoin
// content.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"

	"github.com/shamank/apicaller-go/pkg/model"
)

const (
	// IpfsPrefix is the URI scheme prefix recognized for IPFS content.
	IpfsPrefix = "ipfs://"
	// FilecoinPrefix is the URI scheme prefix recognized for Filecoin/Lighthouse content.
	FilecoinPrefix = "filecoin://"

	// DefaultLighthouseURL is the public Lighthouse gateway.
	DefaultLighthouseURL = "https://gateway.lighthouse.storage/ipfs/"
)

// ErrNoProtoFiles is returned when an encoding yields no .proto sources.
var ErrNoProtoFiles = errors.New("no proto files in api encoding")

// LighthouseFetcher fetches content from a Lighthouse gateway.
type LighthouseFetcher interface {
	Fetch(ctx context.Context, endpoint, cid string) ([]byte, error)
}

// IPFSFetcher fetches content addressed by CID from IPFS.
type IPFSFetcher interface {
	Fetch(ctx context.Context, hash string) ([]byte, error)
}

// Client aggregates the configured storage backends. Fetched content is
// cached by URI for the lifetime of the Client, content addressing makes
// it immutable.
type Client struct {
	// HttpApi is a connected Kubo HTTP API client used for IPFS reads.
	*rpc.HttpApi
	// LighthouseURL is the base URL of the Lighthouse HTTP gateway.
	LighthouseURL string
	// Timeout bounds a single fetch. Zero means no bound beyond the context.
	Timeout time.Duration

	lighthouseFetcher LighthouseFetcher
	ipfsFetcher       IPFSFetcher

	cache sync.Map // uri -> []byte
}

// NewStorage constructs a Client using the provided IPFS API endpoint and
// Lighthouse gateway URL. An empty lighthouseURL selects the public gateway.
func NewStorage(ipfsURL, lighthouseURL string, timeout time.Duration) (*Client, error) {
	if lighthouseURL == "" {
		lighthouseURL = DefaultLighthouseURL
	}
	s := &Client{
		LighthouseURL: lighthouseURL,
		Timeout:       timeout,
	}
	if ipfsURL != "" {
		api, err := NewIPFSClient(ipfsURL, timeout)
		if err != nil {
			return nil, err
		}
		s.HttpApi = api
	}
	s.lighthouseFetcher = lighthouseFetcher{timeout: timeout}
	s.ipfsFetcher = newIPFSFetcher(s.HttpApi)
	return s, nil
}

// ReadFile fetches content identified by the given hash/URI. If the input has
// the "filecoin://" prefix, it is retrieved via the Lighthouse gateway;
// otherwise, the content is fetched from IPFS using the Kubo client.
func (s *Client) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	if v, ok := s.cache.Load(uri); ok {
		return v.([]byte), nil
	}
	if s.lighthouseFetcher == nil {
		s.lighthouseFetcher = lighthouseFetcher{timeout: s.Timeout}
	}
	if s.ipfsFetcher == nil {
		s.ipfsFetcher = newIPFSFetcher(s.HttpApi)
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(uri, FilecoinPrefix) {
		raw, err = s.lighthouseFetcher.Fetch(ctx, s.LighthouseURL, formatHash(uri))
	} else {
		raw, err = s.ipfsFetcher.Fetch(ctx, formatHash(uri))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	s.cache.Store(uri, raw)
	return raw, nil
}

// ResolveProtoFiles returns the .proto sources of enc. Inline ProtoFiles win;
// otherwise the APISource bundle is fetched and unpacked. The returned map
// is a copy the caller may modify.
func (s *Client) ResolveProtoFiles(ctx context.Context, enc *model.APIEncoding) (map[string]string, error) {
	if enc == nil {
		return nil, ErrNoProtoFiles
	}
	if len(enc.ProtoFiles) > 0 {
		out := make(map[string]string, len(enc.ProtoFiles))
		for k, v := range enc.ProtoFiles {
			out[k] = v
		}
		return out, nil
	}
	if enc.APISource == "" {
		return nil, ErrNoProtoFiles
	}

	bundle, err := s.ReadFile(ctx, enc.APISource)
	if err != nil {
		return nil, err
	}
	protos, err := ParseProtoFiles(bundle)
	if err != nil {
		return nil, fmt.Errorf("parse api source %s: %w", enc.APISource, err)
	}
	if len(protos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProtoFiles, enc.APISource)
	}
	zap.L().Debug("resolved api source", zap.String("source", enc.APISource), zap.Int("files", len(protos)))
	return protos, nil
}

var specialCharacters = regexp.MustCompile("[^a-zA-Z0-9=]")

// formatHash removes known URI scheme prefixes and any non-alphanumeric
// characters (except '=') from the supplied hash/URI to produce a clean CID
// string suitable for the underlying backends.
func formatHash(hash string) string {
	hash = strings.ReplaceAll(hash, IpfsPrefix, "")
	hash = strings.ReplaceAll(hash, FilecoinPrefix, "")
	return removeSpecialCharacters(hash)
}

// removeSpecialCharacters strips all characters except ASCII letters, digits,
// and '='.
func removeSpecialCharacters(s string) string {
	return specialCharacters.ReplaceAllString(s, "")
}
