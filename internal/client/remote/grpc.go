package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultCallTimeout = 15 * time.Second
	defaultSignTTL     = 5 * time.Minute
)

// GRPCGateway implements Gateway over the hand-declared gateway service.
// Blob bytes never travel over gRPC: the backend signs a URL and the bytes go
// straight to the object store.
type GRPCGateway struct {
	conn        *grpc.ClientConn
	client      *gatewayrpc.GatewayClient
	accessToken string
	http        *http.Client
	callTimeout time.Duration
	signTTL     time.Duration
}

type Option func(*GRPCGateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *GRPCGateway) { g.http = c }
}

func WithCallTimeout(d time.Duration) Option {
	return func(g *GRPCGateway) { g.callTimeout = d }
}

// WithSignTTL sets the lifetime of URLs signed for Upload and Download.
func WithSignTTL(d time.Duration) Option {
	return func(g *GRPCGateway) { g.signTTL = d }
}

func newGateway(accessToken string, opts []Option) *GRPCGateway {
	g := &GRPCGateway{
		accessToken: accessToken,
		http:        &http.Client{Timeout: time.Minute},
		callTimeout: defaultCallTimeout,
		signTTL:     defaultSignTTL,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// NewGRPCGateway dials endpointURL lazily; no I/O happens until the first call.
func NewGRPCGateway(endpointURL, accessToken string, opts ...Option) (*GRPCGateway, error) {
	g := newGateway(accessToken, opts)
	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(g.accessTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}
	g.conn = conn
	g.client = gatewayrpc.NewGatewayClient(conn)
	return g, nil
}

// NewGatewayOverConn uses an existing connection. The caller is responsible
// for attaching the access token.
func NewGatewayOverConn(cc grpc.ClientConnInterface, opts ...Option) *GRPCGateway {
	g := newGateway("", opts)
	g.client = gatewayrpc.NewGatewayClient(cc)
	return g
}

func (g *GRPCGateway) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (g *GRPCGateway) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if g.accessToken != "" {
		ctx = withAccessToken(ctx, g.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (g *GRPCGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrUnavailable
		}
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (g *GRPCGateway) Ping(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Ping(ctx, gatewayrpc.Empty())
	if err != nil {
		return mapError(err)
	}
	if gatewayrpc.Status(resp) != gatewayrpc.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (g *GRPCGateway) Fetch(ctx context.Context, entity string, filter Filter) ([]json.RawMessage, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.Fetch(ctx, gatewayrpc.NewFetchRequest(entity, filter))
	if err != nil {
		return nil, mapError(err)
	}
	return gatewayrpc.ParseRecordsResponse(resp)
}

// Upsert with no records is a no-op.
func (g *GRPCGateway) Upsert(ctx context.Context, entity string, records []json.RawMessage) error {
	if len(records) == 0 {
		return nil
	}
	req, err := gatewayrpc.NewUpsertRequest(entity, records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entity, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	_, err = g.client.Upsert(ctx, req)
	return mapError(err)
}

func (g *GRPCGateway) Delete(ctx context.Context, entity string, id string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.client.Delete(ctx, gatewayrpc.NewDeleteRequest(entity, id))
	return mapError(err)
}

func (g *GRPCGateway) sign(ctx context.Context, r gatewayrpc.SignRequest) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.client.SignBlob(ctx, r.Struct())
	if err != nil {
		return "", mapError(err)
	}
	url := gatewayrpc.URL(resp)
	if url == "" {
		return "", fmt.Errorf("empty signed url for %s", r.Path)
	}
	return url, nil
}

// Sign returns a GET URL for path valid for ttl.
func (g *GRPCGateway) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return g.sign(ctx, gatewayrpc.SignRequest{Path: path, Method: gatewayrpc.BlobGet, TTL: ttl})
}

func (g *GRPCGateway) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	url, err := g.sign(ctx, gatewayrpc.SignRequest{
		Path:        path,
		Method:      gatewayrpc.BlobPut,
		ContentType: contentType,
		TTL:         g.signTTL,
	})
	if err != nil {
		return err
	}
	return netx.UploadToPresignedURL(ctx, g.http, url, data, contentType)
}

func (g *GRPCGateway) Download(ctx context.Context, path string) ([]byte, error) {
	url, err := g.Sign(ctx, path, g.signTTL)
	if err != nil {
		return nil, err
	}
	data, err := netx.DownloadFromPresignedURL(ctx, g.http, url)
	var se *netx.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, ErrNotFound
	}
	return data, err
}

func (g *GRPCGateway) Remove(ctx context.Context, path string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.client.RemoveBlob(ctx, gatewayrpc.NewPathRequest(path))
	return mapError(err)
}
