// Package grpc exposes the server services over gRPC: unary procedures for
// accounts, records and the social graph, and a server stream that pushes
// social snapshots as they change.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/playkeeper/internal/logging"
	"github.com/dmitrijs2005/playkeeper/internal/server/models"
	"github.com/dmitrijs2005/playkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/playkeeper/internal/server/services"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (string, string, error)
	AllocateCode(ctx context.Context, userID string) (string, error)
}

type RecordService interface {
	Upsert(ctx context.Context, userID string, rec *models.Record) (time.Time, error)
	Delete(ctx context.Context, userID, domain, id string) (time.Time, error)
	ChangedSince(ctx context.Context, userID string, feed records.Feed) ([]models.Record, error)
}

type SocialService interface {
	SendFriendInvite(ctx context.Context, userID, code string, createdAt time.Time) (*models.FriendRelation, error)
	AcceptFriend(ctx context.Context, userID, friendID string) error
	RejectFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	FindOutgoingInvite(ctx context.Context, userID, code string) (*models.FriendRelation, error)
	CreateGroup(ctx context.Context, userID, name string) (*models.Group, error)
	ListGroups(ctx context.Context, userID string) ([]models.Group, error)
	InviteToGroup(ctx context.Context, userID, groupID, toID string, createdAt time.Time) (*models.GroupInvite, error)
	GetGroupInvite(ctx context.Context, userID, inviteID string) (*models.GroupInvite, error)
	AcceptGroupInvite(ctx context.Context, userID, inviteID string) error
	CancelGroupInvite(ctx context.Context, userID, inviteID string) error
	LeaveGroup(ctx context.Context, userID, groupID string) error
	Snapshot(ctx context.Context, userID, collection, groupID string) (*services.Snapshot, error)
}

// Notifier wakes a subscriber whenever its topic changes.
type Notifier interface {
	Subscribe(topic string) (<-chan struct{}, func())
}

type GRPCServer struct {
	wire.UnimplementedPlayKeeperServer
	address   string
	users     UserService
	records   RecordService
	social    SocialService
	notifier  Notifier
	logger    logging.Logger
	jwtSecret []byte
	// stopping is closed when Run begins shutdown so that open streams end.
	stopping chan struct{}
}

func NewGRPCServer(address string, l logging.Logger, us UserService, rs RecordService, ss SocialService,
	n Notifier, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		records:   rs,
		social:    ss,
		notifier:  n,
		jwtSecret: []byte(secretKey),
		stopping:  make(chan struct{}),
	}
}

// NewServer builds the grpc.Server with the auth interceptors and the
// PlayKeeper service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	srv := grpc.NewServer(opts...)
	wire.RegisterPlayKeeperServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then ends open subscriptions and
// stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		close(s.stopping)
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
