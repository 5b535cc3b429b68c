package server

import (
	"context"

	"pixelplaza/server/logging"
	presencelog "pixelplaza/server/logging/presence"
)

// NotifyFollowers resolves the user's follower list and delivers the event
// to each follower's personal channel. Delivery is best effort: a lookup
// failure is logged and the notification is skipped, with no retry and no
// queued redelivery. The lookup runs without the hub lock, so other
// handlers keep flowing while it is pending.
func (h *Hub) NotifyFollowers(ctx context.Context, sourceUserID, event string, payload any) {
	if h.followers == nil || sourceUserID == "" {
		return
	}

	followerIDs, err := h.followers.Followers(ctx, sourceUserID)
	if err != nil {
		presencelog.FanoutSkipped(ctx, h.publisher,
			logging.EntityRef{ID: sourceUserID, Kind: logging.EntityKindUser},
			presencelog.FanoutSkippedPayload{Event: event, Reason: err.Error()})
		return
	}
	if len(followerIDs) == 0 {
		return
	}

	h.SendToUsers(followerIDs, event, payload)
}
