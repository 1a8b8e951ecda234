package grpc

import (
	"github.com/dmitrijs2005/playkeeper/internal/server/notify"
	"github.com/dmitrijs2005/playkeeper/internal/server/services"
	"github.com/dmitrijs2005/playkeeper/internal/wire"
)

// Subscribe sends the collection's current snapshot and then a fresh one
// after every change notification, until the client goes away. The
// notification subscription is taken before the first read so a change
// landing in between still triggers a resend.
func (s *GRPCServer) Subscribe(req *wire.SubscribeRequest, stream wire.SnapshotSender) error {
	ctx := stream.Context()
	uid, err := userID(ctx)
	if err != nil {
		return s.fail(ctx, "Subscribe", err)
	}

	key, err := services.SnapshotKey(uid, req.Collection, req.GroupID)
	if err != nil {
		return s.fail(ctx, "Subscribe", err)
	}

	wake, cancel := s.notifier.Subscribe(notify.Topic(req.Collection, key))
	defer cancel()

	s.logger.Debug(ctx, "subscription opened", "user_id", uid, "collection", req.Collection, "group_id", req.GroupID)

	for {
		snap, err := s.social.Snapshot(ctx, uid, req.Collection, req.GroupID)
		if err != nil {
			return s.fail(ctx, "Subscribe", err)
		}
		if err := stream.Send(snapshotToWire(snap)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Debug(ctx, "subscription closed", "user_id", uid, "collection", req.Collection)
			return nil
		case <-s.stopping:
			return nil
		case <-wake:
		}
	}
}
