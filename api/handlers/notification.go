package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationSocket is where a signed-in user's push notifications are written
type NotificationSocket interface {
	Serve(w http.ResponseWriter, r *http.Request, user primitive.ObjectID)
}

// Notification exported for testing purposes
type Notification struct {
	Hub NotificationSocket
}

// NotificationsWebSocketHandler upgrades the request and registers the socket for the
// caller. The caller comes from the auth middleware, never from the query string.
func (n Notification) NotificationsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	n.Hub.Serve(w, r, actor.UserID)
}
