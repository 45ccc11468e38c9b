package storage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/kubo/client/rpc"
	"go.uber.org/zap"
)

// ErrCIDMismatch is returned when fetched raw content does not hash to the
// requested CID.
var ErrCIDMismatch = errors.New("content does not match cid")

// ParseProtoFiles extracts .proto files from a tar or tar.gz archive.
//
// The input is inspected for a gzip magic header; if present, it is
// transparently decompressed before reading tar entries. Directory entries
// are ignored and non-.proto regular files are skipped. The returned map
// keys are the archive paths.
func ParseProtoFiles(bundle []byte) (protos map[string]string, err error) {
	var reader io.Reader = bytes.NewReader(bundle)

	if isGzipFile(bundle) {
		zap.L().Debug("detected gzip-compressed tar file, decompressing")
		gzr, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress gzip: %w", err)
		}
		defer func() {
			if cerr := gzr.Close(); cerr != nil {
				zap.L().Error("failed to close gzip reader", zap.Error(cerr))
			}
		}()
		reader = gzr
	}

	tarReader := tar.NewReader(reader)
	protos = make(map[string]string)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			zap.L().Debug("skipping directory in api source", zap.String("name", header.Name))
		case tar.TypeReg:
			if !strings.HasSuffix(header.Name, ".proto") {
				zap.L().Debug("skipping non-proto file in api source", zap.String("name", header.Name))
				continue
			}
			data, err := io.ReadAll(tarReader)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", header.Name, err)
			}
			protos[header.Name] = string(data)
		default:
			return nil, fmt.Errorf("unknown file type %c in file %s", header.Typeflag, header.Name)
		}
	}
	return protos, nil
}

// isGzipFile reports whether data appears to be gzip-compressed,
// based on the 0x1F 0x8B magic bytes.
func isGzipFile(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1F && data[1] == 0x8B
}

// ipfsFetcher is the concrete implementation of IPFSFetcher using Kubo HTTP API.
type ipfsFetcher struct {
	api *rpc.HttpApi
}

func newIPFSFetcher(api *rpc.HttpApi) IPFSFetcher {
	return &ipfsFetcher{api: api}
}

// Fetch retrieves content by CID via `ipfs cat`. Content addressed by a raw
// CID is verified against it; UnixFS (dag-pb) content cannot be verified
// without the DAG and is accepted as served.
func (f *ipfsFetcher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	if f.api == nil {
		return nil, errors.New("ipfs client not configured")
	}

	hash = formatHash(hash)
	cID, err := cid.Parse(hash)
	if err != nil {
		return nil, fmt.Errorf("parse cid %q: %w", hash, err)
	}
	zap.L().Debug("fetching from ipfs", zap.String("cid", cID.String()))

	resp, err := f.api.Request("cat", cID.String()).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat: %w", err)
	}
	defer func() {
		if cerr := resp.Close(); cerr != nil {
			zap.L().Warn("error closing ipfs response", zap.Error(cerr))
		}
	}()
	if resp.Error != nil {
		return nil, fmt.Errorf("ipfs cat: %w", resp.Error)
	}

	content, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("read ipfs content: %w", err)
	}
	if err := verifyCID(cID, content); err != nil {
		return nil, err
	}
	return content, nil
}

func verifyCID(want cid.Cid, content []byte) error {
	if want.Prefix().Codec != cid.Raw {
		return nil
	}
	got, err := want.Prefix().Sum(content)
	if err != nil {
		return fmt.Errorf("hash content: %w", err)
	}
	if !got.Equals(want) {
		zap.L().Error("ipfs hash verification failed",
			zap.String("expected", want.String()),
			zap.String("actual", got.String()))
		return fmt.Errorf("%w: expected %s, got %s", ErrCIDMismatch, want, got)
	}
	return nil
}

// NewIPFSClient constructs a Kubo HTTP API client pointed at url.
func NewIPFSClient(url string, timeout time.Duration) (*rpc.HttpApi, error) {
	httpClient := &http.Client{Timeout: timeout}
	client, err := rpc.NewURLApiWithClient(url, httpClient)
	if err != nil {
		return nil, fmt.Errorf("ipfs client %s: %w", url, err)
	}
	return client, nil
}
