package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type lighthouseFetcher struct {
	timeout time.Duration
}

func (f lighthouseFetcher) Fetch(ctx context.Context, endpoint, cid string) ([]byte, error) {
	return GetLighthouseFileCtx(ctx, endpoint, cid, f.timeout)
}

// GetLighthouseFileCtx fetches a blob from a Lighthouse HTTP gateway with a
// GET to {lighthouseEndpoint}{cID}. The CID is appended verbatim, so the
// endpoint usually ends with a slash. A positive timeout bounds the request.
func GetLighthouseFileCtx(ctx context.Context, lighthouseEndpoint, cID string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	zap.L().Debug("getting lighthouse file", zap.String("cid", cID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lighthouseEndpoint+cID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			zap.L().Warn("error closing lighthouse response", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lighthouse: http status %d for %s", resp.StatusCode, cID)
	}
	return io.ReadAll(resp.Body)
}
