// Package status derives a message's aggregate delivery status from the
// store's current delivered-to and read-by sets.
package status

import (
	"github.com/samber/lo"

	"chat-status/internal/models"
)

// Resolve computes the room-wide status of msg given the room's membership.
//
// The author is excluded on both sides: a message is never unread because its
// author hasn't read it. "read" requires every non-author member in read-by;
// "delivered" requires at least one non-author recipient. If the author is
// absent (deleted account), nobody is excluded.
//
// Because delivered-to and read-by are append-only, the result is monotonic:
// it only ever advances sent -> delivered -> read.
func Resolve(msg *models.Message, members []models.UserID) models.Status {
	others := members
	delivered := msg.DeliveredTo
	if msg.Author != "" {
		others = lo.Without(members, msg.Author)
		delivered = lo.Without(msg.DeliveredTo, msg.Author)
	}

	if len(others) > 0 && lo.Every(msg.ReadBy, others) {
		return models.StatusRead
	}
	if len(delivered) > 0 {
		return models.StatusDelivered
	}
	return models.StatusSent
}
