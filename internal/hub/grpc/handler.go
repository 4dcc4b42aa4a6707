package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins/grpcstore"
	"github.com/ustczzh/AlephNote/internal/plugins/pgstore"
	"github.com/ustczzh/AlephNote/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Store is the account-scoped note storage behind the hub.
// *pgstore.Repository implements it.
type Store interface {
	ListVersions(ctx context.Context, account string) ([]pgstore.VersionRow, error)
	Get(ctx context.Context, account, id string) (*models.Note, int64, error)
	Upsert(ctx context.Context, account string, n *models.Note) (int64, error)
	Delete(ctx context.Context, account, id string) error
}

type handler struct {
	store  Store
	logger logging.Logger
}

var _ grpcstore.NoteStoreServer = (*handler)(nil)

func revision(v int64) string { return strconv.FormatInt(v, 10) }

func (h *handler) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrSerialization):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	h.logger.Error(ctx, "store failure", "op", op, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func account(ctx context.Context) (string, error) {
	a, ok := accountFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no account")
	}
	return a, nil
}

func (h *handler) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (h *handler) List(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	acc, err := account(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := h.store.ListVersions(ctx, acc)
	if err != nil {
		return nil, h.toStatus(ctx, "list", err)
	}
	refs := make([]remote.Ref, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, remote.Ref{ID: r.ID, Revision: revision(r.Version)})
	}
	return grpcstore.EncodeRefs(refs), nil
}

func (h *handler) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	acc, err := account(ctx)
	if err != nil {
		return nil, err
	}
	n, v, err := h.store.Get(ctx, acc, in.GetValue())
	if err != nil {
		return nil, h.toStatus(ctx, "fetch", err)
	}
	n.Revision = revision(v)
	return grpcstore.EncodeNote(n), nil
}

func (h *handler) Push(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	acc, err := account(ctx)
	if err != nil {
		return nil, err
	}
	n, err := grpcstore.DecodeNote(in)
	if err != nil {
		return nil, h.toStatus(ctx, "push", err)
	}
	v, err := h.store.Upsert(ctx, acc, n)
	if err != nil {
		return nil, h.toStatus(ctx, "push", err)
	}
	h.logger.Debug(ctx, "note stored", "account", acc, "id", n.ID, "version", v)
	return wrapperspb.String(revision(v)), nil
}

func (h *handler) Delete(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	acc, err := account(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.store.Delete(ctx, acc, in.GetValue()); err != nil {
		return nil, h.toStatus(ctx, "delete", err)
	}
	return &emptypb.Empty{}, nil
}
