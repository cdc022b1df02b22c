// Package routing is the single location fan-out implementation: given a
// position update from one participant, it determines the authorized,
// non-blocked recipients in the ride's room and delivers to each.
package routing

import (
	"context"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/geocache"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/logger"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/metrics"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/notify"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// Member is one live connection joined to a room.
type Member struct {
	ConnID string
	UserID string
}

// RoomDirectory is the ephemeral room membership view the gateway maintains.
type RoomDirectory interface {
	IsMember(room, connID string) bool
	Members(room string) []Member
}

// Sender delivers one event to one connection. Delivery is at-most-once:
// a failed send is dropped, superseded by the next update.
type Sender interface {
	Send(connID string, event any) error
}

// Service routes position updates and owns the sharing activity log.
type Service struct {
	log       *logger.Logger
	rides     ports.RideStore
	blocks    ports.BlockRegistry
	sharing   ports.SharingLog
	pub       ports.EventPublisher
	rooms     RoomDirectory
	send      Sender
	positions *geocache.Positions // optional best-effort cache, may be nil
}

// NewService wires the routing service. positions may be nil when no cache
// is configured.
func NewService(log *logger.Logger, rides ports.RideStore, blocks ports.BlockRegistry, sharing ports.SharingLog, pub ports.EventPublisher, rooms RoomDirectory, send Sender, positions *geocache.Positions) *Service {
	return &Service{
		log:       log,
		rides:     rides,
		blocks:    blocks,
		sharing:   sharing,
		pub:       pub,
		rooms:     rooms,
		send:      send,
		positions: positions,
	}
}

// StartSharing appends a start marker to the activity log. Silently ignored
// when the caller is not the driver: a probing caller learns nothing about
// the ride's structure.
func (s *Service) StartSharing(ctx context.Context, rideID, userID string) error {
	return s.logSharing(ctx, rideID, userID, ports.SharingStarted, notify.KeySharingStarted)
}

// StopSharing appends a stop marker. Re-sending stop when already stopped
// just appends another row; the log is a plain activity trail, not a state
// machine.
func (s *Service) StopSharing(ctx context.Context, rideID, userID string) error {
	return s.logSharing(ctx, rideID, userID, ports.SharingStopped, notify.KeySharingStopped)
}

func (s *Service) logSharing(ctx context.Context, rideID, userID string, action ports.SharingAction, key string) error {
	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if r.DriverID != userID {
		// intentionally permissive: no error, no log entry
		return nil
	}

	entry := ports.SharingEntry{
		RideID:    rideID,
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sharing.Append(ctx, entry); err != nil {
		return err
	}

	s.log.Info(ctx, "sharing_marker", "Location sharing marker recorded", map[string]any{
		"action":  string(action),
		"ride_id": rideID,
		"user_id": userID,
	})
	if s.pub != nil {
		if err := s.pub.Publish(ctx, key, entry); err != nil {
			s.log.Error(ctx, "event_publish_failed", "Failed to publish sharing event", err, nil)
		}
	}
	return nil
}

// Route fans one position update out to the authorized room members.
// Authorization is re-checked against the current ride document on every
// update: passenger status and blocks can change mid-ride, and a stale
// cache here would leak positions.
func (s *Service) Route(ctx context.Context, senderConnID, senderUserID, rideID string, lat, lng float64) error {
	room := RoomName(rideID)

	// a sender outside the room was never authorized; drop without a reply
	if !s.rooms.IsMember(room, senderConnID) {
		metrics.LocationUpdatesSuppressed.WithLabelValues("not_member").Inc()
		return nil
	}

	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return err
	}

	// room membership is not enough: approval can be revoked mid-ride
	if senderUserID != r.DriverID && !r.IsApprovedPassenger(senderUserID) {
		metrics.LocationUpdatesSuppressed.WithLabelValues("sender_revoked").Inc()
		return nil
	}

	role := user.RolePassenger
	if senderUserID == r.DriverID {
		role = user.RoleDriver
	}

	payload := LocationUpdate{
		UserID:    senderUserID,
		Latitude:  lat,
		Longitude: lng,
		Role:      roleLabel(role),
	}

	for _, member := range s.rooms.Members(room) {
		if member.ConnID == senderConnID || member.UserID == senderUserID {
			continue
		}

		ok, reason, err := s.mayDeliver(ctx, r, role, senderUserID, member.UserID)
		if err != nil {
			s.log.Error(ctx, "route_check_failed", "Recipient check failed; skipping delivery", err, map[string]any{
				"ride_id":   rideID,
				"recipient": member.UserID,
			})
			continue
		}
		if !ok {
			metrics.LocationUpdatesSuppressed.WithLabelValues(reason).Inc()
			continue
		}

		// at-most-once: a failed write is dropped, not retried
		if err := s.send.Send(member.ConnID, Event{Type: EventLocationUpdate, Data: payload}); err != nil {
			s.log.Debug(ctx, "location_send_failed", "Dropped location event", map[string]any{
				"recipient": member.UserID,
			})
			continue
		}
		metrics.LocationUpdatesRouted.Inc()
	}

	// best-effort cache of the latest marker
	if s.positions != nil {
		if err := s.positions.Upsert(ctx, rideID, senderUserID, lat, lng); err != nil {
			s.log.Debug(ctx, "position_cache_failed", "Failed to cache last position", map[string]any{
				"ride_id": rideID,
			})
		}
	}

	return nil
}

// mayDeliver applies the per-recipient rules: the recipient must still be
// an authorized participant, passengers only exchange positions with the
// driver, and an active block in either direction suppresses delivery.
func (s *Service) mayDeliver(ctx context.Context, r *ride.Ride, senderRole user.Role, senderID, recipientID string) (bool, string, error) {
	if recipientID != r.DriverID && !r.IsApprovedPassenger(recipientID) {
		return false, "recipient_revoked", nil
	}
	if senderRole == user.RolePassenger && recipientID != r.DriverID {
		return false, "passenger_isolation", nil
	}

	blocked, err := s.blocks.Exists(ctx, senderID, recipientID)
	if err != nil {
		return false, "", err
	}
	if blocked {
		return false, "blocked", nil
	}
	return true, "", nil
}

// SeedJoin replays the cached markers of a ride to a member that just
// joined, applying the same per-recipient rules in reverse: the joiner only
// sees markers it would have received live.
func (s *Service) SeedJoin(ctx context.Context, rideID, connID, joinerID string) {
	if s.positions == nil {
		return
	}

	snapshot, err := s.positions.Snapshot(ctx, rideID)
	if err != nil || len(snapshot) == 0 {
		return
	}

	r, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return
	}

	for _, pos := range snapshot {
		if pos.UserID == joinerID {
			continue
		}
		markerRole := user.RolePassenger
		if pos.UserID == r.DriverID {
			markerRole = user.RoleDriver
		}
		ok, _, err := s.mayDeliver(ctx, r, markerRole, pos.UserID, joinerID)
		if err != nil || !ok {
			continue
		}
		_ = s.send.Send(connID, Event{Type: EventLocationUpdate, Data: LocationUpdate{
			UserID:    pos.UserID,
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
			Role:      roleLabel(markerRole),
		}})
	}
}

// ForgetPosition drops a participant's cached marker on disconnect.
func (s *Service) ForgetPosition(ctx context.Context, rideID, userID string) {
	if s.positions == nil {
		return
	}
	if err := s.positions.Remove(ctx, rideID, userID); err != nil {
		s.log.Debug(ctx, "position_cache_failed", "Failed to drop cached position", map[string]any{
			"ride_id": rideID,
		})
	}
}

func roleLabel(role user.Role) string {
	if role == user.RoleDriver {
		return "driver"
	}
	return "passenger"
}
