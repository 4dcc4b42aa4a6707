package grpcstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var dial = grpc.NewClient

type Connection struct {
	cfg    Config
	conn   *grpc.ClientConn
	client *noteStoreClient
	log    logging.Logger
	now    func() time.Time
}

func newConnection(cfg Config, log logging.Logger) (*Connection, error) {
	c := &Connection{cfg: cfg, log: log, now: time.Now}

	var creds credentials.TransportCredentials = insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := dial(cfg.Address, grpc.WithTransportCredentials(creds), grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	c.conn = conn
	c.client = &noteStoreClient{cc: conn}
	return c, nil
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

func (c *Connection) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, c.cfg.Token), method, req, reply, cc, opts...)
}

// tokenExpired looks at the exp claim without verifying the signature; the
// hub does the verification. Tokens that are not JWTs are left to the hub.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

func (c *Connection) Connect(ctx context.Context) error {
	if tokenExpired(c.cfg.Token, c.now()) {
		return fmt.Errorf("%w: access token expired", common.ErrAuthentication)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	if _, err := c.client.Ping(ctx, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Connection) List(ctx context.Context) ([]remote.Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	resp, err := c.client.List(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	return DecodeRefs(resp)
}

func (c *Connection) Fetch(ctx context.Context, id string) (*models.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	resp, err := c.client.Fetch(ctx, wrapperspb.String(id))
	if err != nil {
		return nil, mapError(err)
	}
	n, err := DecodeNote(resp)
	if err != nil {
		return nil, err
	}
	n.ID = id
	return n, nil
}

func (c *Connection) Push(ctx context.Context, note *models.Note) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	resp, err := c.client.Push(ctx, EncodeNote(note))
	if err != nil {
		return "", mapError(err)
	}
	return resp.GetValue(), nil
}

func (c *Connection) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	_, err := c.client.Delete(ctx, wrapperspb.String(id))
	if err != nil {
		mapped := mapError(err)
		if errors.Is(mapped, common.ErrNotFound) {
			return nil
		}
		return mapped
	}
	return nil
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		mapped := remote.MapTransportError(err)
		if !remote.Classified(mapped) {
			return fmt.Errorf("%w: rpc error: %v", common.ErrNetwork, err)
		}
		return mapped
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrAuthentication, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrTimeout, st.Message())
	case codes.InvalidArgument, codes.DataLoss:
		return fmt.Errorf("%w: %s", common.ErrSerialization, st.Message())
	case codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", common.ErrConflict, st.Message())
	default:
		return fmt.Errorf("%w: rpc error: %v", common.ErrNetwork, err)
	}
}
