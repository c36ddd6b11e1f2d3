package kvgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/linearkv/linearkv/internal/kv"
	"github.com/linearkv/linearkv/internal/service"
	kvpb "github.com/linearkv/linearkv/pkg/proto/kvv1"
)

// Handler is the subset of *service.KV required by the gRPC server.
// *service.KV satisfies this interface.
type Handler interface {
	Get(ctx context.Context, key, clientID string, seq int64) (kv.Result, error)
	Put(ctx context.Context, key, value, clientID string, seq int64) error
	Append(ctx context.Context, key, value, clientID string, seq int64) error
	Status() service.Status
}

// Server implements kvpb.KVServiceServer by delegating to the KV service.
type Server struct {
	kvpb.UnimplementedKVServiceServer
	handler Handler
}

// NewServer creates a KV gRPC server adapter for the provided handler.
func NewServer(handler Handler) *Server {
	return &Server{handler: handler}
}

// Get handles a linearizable read RPC.
func (s *Server) Get(ctx context.Context, req *kvpb.GetRequest) (*kvpb.GetResponse, error) {
	res, err := s.handler.Get(ctx, req.Key, req.ClientId, req.Seq)
	if err != nil {
		return nil, toGRPCStatus(err)
	}
	return &kvpb.GetResponse{Value: res.Value, Found: res.Found}, nil
}

// Put handles a KV Put RPC.
func (s *Server) Put(ctx context.Context, req *kvpb.PutRequest) (*kvpb.PutResponse, error) {
	if err := s.handler.Put(ctx, req.Key, req.Value, req.ClientId, req.Seq); err != nil {
		return nil, toGRPCStatus(err)
	}
	return &kvpb.PutResponse{}, nil
}

// Append handles a KV Append RPC.
func (s *Server) Append(ctx context.Context, req *kvpb.AppendRequest) (*kvpb.AppendResponse, error) {
	if err := s.handler.Append(ctx, req.Key, req.Value, req.ClientId, req.Seq); err != nil {
		return nil, toGRPCStatus(err)
	}
	return &kvpb.AppendResponse{}, nil
}

// Status reports the node's role and progress.
func (s *Server) Status(context.Context, *kvpb.StatusRequest) (*kvpb.StatusResponse, error) {
	st := s.handler.Status()
	return &kvpb.StatusResponse{
		NodeId:          st.NodeID,
		Term:            st.Term,
		IsLeader:        st.IsLeader,
		LastApplied:     st.LastApplied,
		PendingRequests: int64(st.PendingRequests),
		Keys:            int64(st.Keys),
		StateBytes:      st.StateBytes,
	}, nil
}

func toGRPCStatus(err error) error {
	if errors.Is(err, service.ErrNotLeader) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	if errors.Is(err, service.ErrCommitTimeout) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
