// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/secret"
)

// DirectSession is an authenticated Matrix session: a Client plus the
// access token for one logged-in device.
//
// The access token lives in a secret.Buffer (mmap-backed, locked
// against swap, excluded from core dumps). Call Close when the session
// is no longer needed.
type DirectSession struct {
	client      *Client
	accessToken *secret.Buffer
	userID      ref.UserID
	deviceID    string
}

// UserID returns the fully-qualified Matrix user ID.
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// DeviceID returns the device ID for this session.
func (s *DirectSession) DeviceID() string {
	return s.deviceID
}

// AccessToken returns the access token as a heap string. This copies
// out of the locked buffer; use only at boundaries that require a
// string.
func (s *DirectSession) AccessToken() string {
	return s.accessToken.String()
}

// CloseIdleConnections drops pooled TCP connections in the underlying
// transport. Call after a sync error so the next poll gets a fresh
// connection.
func (s *DirectSession) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// Close releases the access token memory (zeros, unlocks, unmaps).
// Idempotent.
func (s *DirectSession) Close() error {
	if s.accessToken == nil {
		return nil
	}
	return s.accessToken.Close()
}

// get issues an authenticated GET.
func (s *DirectSession) get(ctx context.Context, path string, query url.Values, result any) error {
	return s.client.call(ctx, callSpec{
		method: http.MethodGet,
		path:   path,
		query:  query,
		token:  s.accessToken,
	}, result)
}

// submit issues an authenticated POST or PUT with a JSON body.
func (s *DirectSession) submit(ctx context.Context, method, path string, body, result any) error {
	return s.client.call(ctx, callSpec{
		method: method,
		path:   path,
		body:   body,
		token:  s.accessToken,
	}, result)
}

// roomPath builds a /rooms/{roomID}/... path with every segment
// escaped.
func roomPath(roomID ref.RoomID, segments ...string) string {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(roomID.String())
	for _, segment := range segments {
		path += "/" + url.PathEscape(segment)
	}
	return path
}

// WhoAmI validates the access token and returns the user ID. Useful
// for checking whether a restored token is still valid before entering
// the sync loop.
func (s *DirectSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	var response WhoAmIResponse
	if err := s.get(ctx, "/_matrix/client/v3/account/whoami", nil, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami: %w", err)
	}
	return response.UserID, nil
}

// SendMessage sends an m.room.message event to a room. The transaction
// ID must be chosen by the caller: the server echoes it back in
// unsigned.transaction_id on the confirmed event, which is how the
// timeline matches the confirmation to its local echo.
func (s *DirectSession) SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, ref.EventTypeMessage, transactionID, content)
}

// SendEvent sends an event of any type to a room using Matrix's
// idempotent PUT with the caller's transaction ID. Returns the event ID.
func (s *DirectSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, transactionID string, content any) (ref.EventID, error) {
	if transactionID == "" {
		return ref.EventID{}, fmt.Errorf("messaging: transaction ID is required for event send")
	}

	var response SendEventResponse
	path := roomPath(roomID, "send", eventType.String(), transactionID)
	if err := s.submit(ctx, http.MethodPut, path, content, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send %s to %s: %w", eventType, roomID, err)
	}
	return response.EventID, nil
}

// RedactEvent redacts an event in a room, stripping its content.
// Returns the event ID of the redaction event itself.
func (s *DirectSession) RedactEvent(ctx context.Context, roomID ref.RoomID, target ref.EventID, transactionID, reason string) (ref.EventID, error) {
	if transactionID == "" {
		return ref.EventID{}, fmt.Errorf("messaging: transaction ID is required for redaction")
	}

	var response SendEventResponse
	path := roomPath(roomID, "redact", target.String(), transactionID)
	if err := s.submit(ctx, http.MethodPut, path, RedactionContent{Reason: reason}, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: redact %s in %s: %w", target, roomID, err)
	}
	return response.EventID, nil
}

// SendTyping starts or stops a typing notification in a room. timeout
// is how long the server should consider the user typing, in
// milliseconds; it is ignored when typing is false.
func (s *DirectSession) SendTyping(ctx context.Context, roomID ref.RoomID, typing bool, timeout int64) error {
	request := TypingRequest{Typing: typing}
	if typing {
		request.Timeout = timeout
	}

	path := roomPath(roomID, "typing", s.userID.String())
	if err := s.submit(ctx, http.MethodPut, path, request, nil); err != nil {
		return fmt.Errorf("messaging: typing notification to %s: %w", roomID, err)
	}
	return nil
}

// RoomMessages fetches history from a room with pagination.
func (s *DirectSession) RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	query := url.Values{}
	if options.From != "" {
		query.Set("from", options.From)
	}
	if options.Direction != "" {
		query.Set("dir", options.Direction)
	} else {
		query.Set("dir", "b") // newest first
	}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	var response RoomMessagesResponse
	if err := s.get(ctx, roomPath(roomID, "messages"), query, &response); err != nil {
		return nil, fmt.Errorf("messaging: room messages for %s: %w", roomID, err)
	}
	return &response, nil
}

// Sync performs an incremental sync with the homeserver. For initial
// sync, leave options.Since empty. For long-polling, set
// options.Timeout to the desired wait in milliseconds.
func (s *DirectSession) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.SetTimeout {
		query.Set("timeout", strconv.Itoa(options.Timeout))
	}
	if options.Filter != "" {
		query.Set("filter", options.Filter)
	}

	var response SyncResponse
	if err := s.get(ctx, "/_matrix/client/v3/sync", query, &response); err != nil {
		return nil, fmt.Errorf("messaging: sync: %w", err)
	}
	return &response, nil
}

// JoinRoom joins a room by ID. Returns the room ID.
func (s *DirectSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	var response struct {
		RoomID ref.RoomID `json:"room_id"`
	}
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	if err := s.submit(ctx, http.MethodPost, path, struct{}{}, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: join %s: %w", roomID, err)
	}
	return response.RoomID, nil
}

// LeaveRoom leaves a room by ID.
func (s *DirectSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	if err := s.submit(ctx, http.MethodPost, roomPath(roomID, "leave"), struct{}{}, nil); err != nil {
		return fmt.Errorf("messaging: leave %s: %w", roomID, err)
	}
	return nil
}

// InviteUser invites a user to a room.
func (s *DirectSession) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	if err := s.submit(ctx, http.MethodPost, roomPath(roomID, "invite"), InviteRequest{UserID: userID}, nil); err != nil {
		return fmt.Errorf("messaging: invite %s to %s: %w", userID, roomID, err)
	}
	return nil
}

// JoinedRooms returns the list of room IDs the user has joined.
func (s *DirectSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	var response JoinedRoomsResponse
	if err := s.get(ctx, "/_matrix/client/v3/joined_rooms", nil, &response); err != nil {
		return nil, fmt.Errorf("messaging: joined rooms: %w", err)
	}
	return response.JoinedRooms, nil
}

// GetRoomMembers returns the members of a room.
func (s *DirectSession) GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]RoomMember, error) {
	var response RoomMembersResponse
	if err := s.get(ctx, roomPath(roomID, "members"), nil, &response); err != nil {
		return nil, fmt.Errorf("messaging: members of %s: %w", roomID, err)
	}

	members := make([]RoomMember, len(response.Chunk))
	for index, event := range response.Chunk {
		members[index] = RoomMember{
			UserID:      event.StateKey,
			DisplayName: event.Content.DisplayName,
			Membership:  event.Content.Membership,
			AvatarURL:   event.Content.AvatarURL,
		}
	}
	return members, nil
}

// GetDisplayName fetches the display name for a Matrix user from their
// profile. Returns an empty string (not an error) if the user has no
// display name set.
func (s *DirectSession) GetDisplayName(ctx context.Context, userID ref.UserID) (string, error) {
	var response DisplayNameResponse
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID.String()) + "/displayname"
	if err := s.get(ctx, path, nil, &response); err != nil {
		if IsMatrixError(err, ErrCodeNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("messaging: display name of %s: %w", userID, err)
	}
	return response.DisplayName, nil
}

// ResolveAlias resolves a room alias (e.g., "#chat:example.org") to a
// room ID.
func (s *DirectSession) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	var response ResolveAliasResponse
	path := "/_matrix/client/v3/directory/room/" + url.PathEscape(alias.String())
	if err := s.get(ctx, path, nil, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: resolve %s: %w", alias, err)
	}
	return response.RoomID, nil
}

// Logout invalidates this session's access token on the server. The
// local token memory is still owned by the caller; call Close after.
func (s *DirectSession) Logout(ctx context.Context) error {
	if err := s.submit(ctx, http.MethodPost, "/_matrix/client/v3/logout", struct{}{}, nil); err != nil {
		return fmt.Errorf("messaging: logout: %w", err)
	}
	return nil
}
