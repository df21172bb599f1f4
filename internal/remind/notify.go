package remind

import (
	"context"

	"github.com/godbus/dbus/v5"

	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
)

// Notifier delivers a fired reminder to the user.
type Notifier interface {
	Deliver(ctx context.Context, title, body string, withSound bool) error
}

// NoopNotifier drops notifications. Used in tests and when no desktop
// notification service is reachable.
type NoopNotifier struct{}

// Deliver implements Notifier as a no-op.
func (NoopNotifier) Deliver(context.Context, string, string, bool) error { return nil }

// DBusNotifier delivers desktop notifications through the
// org.freedesktop.Notifications service on the session bus.
type DBusNotifier struct {
	conn *dbus.Conn
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNotReady, "connect session bus")
	}
	return &DBusNotifier{conn: conn}, nil
}

// Deliver shows a desktop notification. The notification is transient;
// reminders already persist in the store, so nothing tracks dismissal.
func (n *DBusNotifier) Deliver(ctx context.Context, title, body string, withSound bool) error {
	obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")

	hints := map[string]dbus.Variant{}
	if withSound {
		hints["sound-name"] = dbus.MakeVariant("message-new-instant")
	} else {
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}

	call := obj.CallWithContext(ctx, "org.freedesktop.Notifications.Notify", 0,
		"ConvoMark",        // app name
		uint32(0),          // no notification to replace
		"appointment-soon", // themed icon
		title,
		body,
		[]string{}, // no actions
		hints,
		int32(-1), // server-default expiry
	)
	if call.Err != nil {
		return apperrors.Wrap(call.Err, apperrors.CodeInternal, "notify")
	}
	return nil
}

// Close releases the bus connection.
func (n *DBusNotifier) Close() error {
	return n.conn.Close()
}
