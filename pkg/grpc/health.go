package grpc

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
)

// Health performs a standard gRPC health check. An empty service checks the
// server as a whole.
func (c *Client) Health(ctx context.Context, service string) (*grpc_health_v1.HealthCheckResponse, error) {
	return CheckHealth(ctx, c.GRPC, service)
}

// CheckHealth runs a grpc.health.v1 check on an established connection.
func CheckHealth(ctx context.Context, cc grpc.ClientConnInterface, service string) (*grpc_health_v1.HealthCheckResponse, error) {
	client := grpc_health_v1.NewHealthClient(cc)
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return nil, fmt.Errorf("grpc health check failed: %w", err)
	}
	return resp, nil
}

// WebHealth performs a gRPC health check over gRPC-Web (HTTP/1.1) against
// endpoint, for applications served behind a gRPC-Web proxy. A nil hc uses
// http.DefaultClient.
func WebHealth(ctx context.Context, hc *http.Client, endpoint string) (*grpc_health_v1.HealthCheckResponse, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	reqBody, err := proto.Marshal(&grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 5+len(reqBody))
	frame[0] = 0x0 // message frame
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(reqBody)))
	copy(frame[5:], reqBody)

	url := strings.TrimSuffix(endpoint, "/") + "/grpc.health.v1.Health/Check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	req.Header.Set("X-Grpc-Web", "1")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grpc-web health check: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("failed to close health response", zap.Error(err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grpc-web health check: http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read health response: %w", err)
	}
	return decodeWebFrames(body)
}

// decodeWebFrames decodes the first message frame of a gRPC-Web body.
// Trailer frames are skipped.
func decodeWebFrames(body []byte) (*grpc_health_v1.HealthCheckResponse, error) {
	for i := 0; i+5 <= len(body); {
		flags := body[i]
		length := int(binary.BigEndian.Uint32(body[i+1 : i+5]))
		i += 5
		if i+length > len(body) {
			return nil, fmt.Errorf("grpc-web frame of %d bytes exceeds body", length)
		}
		payload := body[i : i+length]
		i += length

		if flags&0x80 != 0 {
			continue
		}
		out := &grpc_health_v1.HealthCheckResponse{}
		if err := proto.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("grpc-web response carried no message frame")
}
