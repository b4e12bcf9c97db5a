// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/secret"
	"github.com/parley-chat/parley/messaging"
)

// envelopeChannelCapacity bounds the background-to-foreground channel.
// The sync loop blocks on a full channel, so a stalled foreground
// throttles the long-poll instead of growing memory without limit.
const envelopeChannelCapacity = 10_000

// maxSyncRetries is the number of consecutive /sync failures tolerated
// before a TransportError envelope is emitted. The loop keeps retrying
// afterward; only context cancellation stops it.
const maxSyncRetries = 5

// longPollTimeout is the server-side long-poll hold in milliseconds.
// 30 seconds matches the Matrix client-server spec recommendation.
const longPollTimeout = 30000

// retryTimeout is the server-side timeout in milliseconds used after a
// /sync error. Short so the retry round-trip itself provides backoff.
const retryTimeout = 1000

// Config configures Connect.
type Config struct {
	// HomeserverURL is the base URL of the homeserver. Required.
	HomeserverURL string

	// Username is the login name (localpart or full user ID).
	// Required.
	Username string

	// Password is consumed by Connect: it is zeroed after the login
	// request. Required.
	Password *secret.Buffer

	// DeviceName labels the device on first login.
	DeviceName string

	// Store persists the device ID and sync position. Required.
	Store *Store

	// FilterJSON is the inline /sync filter. Empty uses DefaultFilter
	// with the server's default timeline limit.
	FilterJSON string

	// HTTPClient defaults to a dedicated client with sane timeouts.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Connection owns the background sync loop for one homeserver.
type Connection struct {
	session messaging.Session
	store   *Store
	logger  *slog.Logger
	filter  string

	events chan Envelope
	cancel context.CancelFunc
	done   chan struct{}
}

// Connect logs in to the homeserver, persists the session identity,
// and starts the sync loop. A device ID persisted from an earlier run
// is reused so the server sees one device per installation.
func Connect(ctx context.Context, config Config) (*Connection, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("connection: Config.Store is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: config.HomeserverURL,
		HTTPClient:    config.HTTPClient,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	session, err := client.Login(ctx, config.Username, config.Password, messaging.LoginOptions{
		DeviceID:   config.Store.DeviceID(),
		DeviceName: config.DeviceName,
	})
	if err != nil {
		return nil, err
	}

	config.Store.SetIdentity(session.UserID(), session.DeviceID())
	if err := config.Store.Save(); err != nil {
		session.Close()
		return nil, err
	}

	return NewWithSession(session, config.Store, config.FilterJSON, logger), nil
}

// NewWithSession starts the sync loop on an already-authenticated
// session. The connection takes ownership of the session and closes it
// when the connection closes.
func NewWithSession(session messaging.Session, store *Store, filterJSON string, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	if filterJSON == "" {
		filterJSON = DefaultFilter(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		session: session,
		store:   store,
		logger:  logger,
		filter:  filterJSON,
		events:  make(chan Envelope, envelopeChannelCapacity),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go connection.syncLoop(ctx)
	return connection
}

// Events returns the envelope channel. It is closed when the
// connection shuts down; the foreground exits its receive loop on
// closure.
func (c *Connection) Events() <-chan Envelope {
	return c.events
}

// Session returns the authenticated transport, for sends and
// pagination requests.
func (c *Connection) Session() messaging.Session {
	return c.session
}

// Close stops the sync loop, waits for it to finish, and closes the
// transport. In-flight sends and pagination requests owned by callers
// are torn down by their own contexts, not by Close.
func (c *Connection) Close() error {
	c.cancel()
	<-c.done
	return c.session.Close()
}

// syncLoop long-polls /sync until the context is cancelled, persisting
// the sync position after every response and emitting classified
// envelopes.
func (c *Connection) syncLoop(ctx context.Context) {
	defer close(c.events)
	defer close(c.done)

	login := LoginComplete{UserID: c.session.UserID()}
	if withDevice, ok := c.session.(interface{ DeviceID() string }); ok {
		login.DeviceID = withDevice.DeviceID()
	}
	c.send(ctx, login)
	for roomID, prevBatch := range c.store.Rooms() {
		c.send(ctx, RestoredRoom{RoomID: roomID, PrevBatch: prevBatch})
	}

	since := c.store.NextBatch()
	retries := 0
	for {
		if ctx.Err() != nil {
			return
		}

		// After an error, a short server-side timeout keeps the retry
		// round-trip quick; the trip itself is the backoff.
		timeout := longPollTimeout
		if retries > 0 {
			timeout = retryTimeout
		}
		response, err := c.session.Sync(ctx, messaging.SyncOptions{
			Since:      since,
			SetTimeout: true,
			Timeout:    timeout,
			Filter:     c.filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			retries++
			// TCP-level errors often indicate a poisoned connection in
			// the HTTP pool; drop idle connections so the next attempt
			// opens a fresh socket.
			if closer, ok := c.session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			if retries > maxSyncRetries {
				c.send(ctx, TransportError{Message: err.Error()})
				retries = 0
			}
			c.logger.Debug("sync error, retrying", "attempt", retries, "error", err)
			continue
		}
		retries = 0
		since = response.NextBatch

		c.dispatchSync(ctx, response)

		c.store.SetNextBatch(response.NextBatch)
		if err := c.store.Save(); err != nil {
			c.logger.Warn("persisting session store failed", "error", err)
		}
	}
}

// dispatchSync classifies one sync response into envelopes.
func (c *Connection) dispatchSync(ctx context.Context, response *messaging.SyncResponse) {
	for roomID, joined := range response.Rooms.Join {
		if prevBatch := joined.Timeline.PrevBatch; prevBatch != "" {
			c.store.SetRoomPrevBatch(roomID, prevBatch)
			c.send(ctx, RoomAdvance{RoomID: roomID, PrevBatch: prevBatch})
		}

		for _, event := range joined.State.Events {
			if event.Type == ref.EventTypeMember {
				c.send(ctx, Membership{RoomID: roomID, Event: event, IsState: true})
				continue
			}
			c.send(ctx, RoomState{RoomID: roomID, Event: event})
		}

		for _, event := range joined.Timeline.Events {
			if event.Type == ref.EventTypeMember {
				c.send(ctx, Membership{RoomID: roomID, Event: event, IsState: false})
				continue
			}
			c.send(ctx, RoomTimeline{RoomID: roomID, Event: event})
		}

		for _, event := range joined.Ephemeral.Events {
			if event.Type != ref.EventTypeTyping {
				continue
			}
			c.send(ctx, RoomTyping{RoomID: roomID, UserIDs: typingUsers(event)})
		}
	}

	for _, event := range response.ToDevice.Events {
		c.send(ctx, ToDevice{Event: event})
	}
}

// send delivers an envelope, blocking for backpressure when the
// channel is full. Delivery is abandoned on cancellation.
func (c *Connection) send(ctx context.Context, envelope Envelope) {
	select {
	case c.events <- envelope:
	case <-ctx.Done():
	}
}

// typingUsers extracts the user IDs from an m.typing ephemeral event.
// Malformed entries are skipped.
func typingUsers(event messaging.Event) []ref.UserID {
	raw, ok := event.Content["user_ids"].([]any)
	if !ok {
		return nil
	}
	users := make([]ref.UserID, 0, len(raw))
	for _, entry := range raw {
		id, ok := entry.(string)
		if !ok {
			continue
		}
		userID, err := ref.ParseUserID(id)
		if err != nil {
			continue
		}
		users = append(users, userID)
	}
	return users
}

// DefaultFilter builds the inline /sync filter: presence and account
// data are suppressed, and the timeline is optionally capped per room
// per response. Zero keeps the server's default limit.
func DefaultFilter(timelineLimit int) string {
	roomFilter := map[string]any{}
	if timelineLimit > 0 {
		roomFilter["timeline"] = map[string]any{"limit": timelineLimit}
	}
	top := map[string]any{
		"room":         roomFilter,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(top)
	return string(data)
}
