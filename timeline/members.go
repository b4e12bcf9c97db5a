// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/messaging"
)

// Member is a room member as the roster knows them.
type Member struct {
	UserID ref.UserID
	// Nick is the member's display name, or the user ID localpart when
	// none is set.
	Nick string
	// Ambiguous marks nicks shared by more than one member.
	Ambiguous bool
}

// Roster tracks room membership and display names, resolving senders
// for rendering. Unknown senders are fetched lazily through the
// transport.
type Roster struct {
	session messaging.Session
	roomID  ref.RoomID
	logger  *slog.Logger

	mu      sync.Mutex
	members map[ref.UserID]string // user ID -> nick
	nicks   map[string]int        // nick -> member count, for ambiguity
}

// NewRoster creates a roster for one room.
func NewRoster(session messaging.Session, roomID ref.RoomID, logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{
		session: session,
		roomID:  roomID,
		logger:  logger,
		members: make(map[ref.UserID]string),
		nicks:   make(map[string]int),
	}
}

// Get resolves a member, fetching the display name from the server
// when the roster has not seen the user yet. Users without a display
// name get the user ID localpart as their nick.
func (r *Roster) Get(ctx context.Context, userID ref.UserID) (Member, error) {
	if member, ok := r.Lookup(userID); ok {
		return member, nil
	}

	displayName, err := r.session.GetDisplayName(ctx, userID)
	if err != nil {
		return Member{}, fmt.Errorf("timeline: resolving member %s: %w", userID, err)
	}
	nick := displayName
	if nick == "" {
		nick = userID.Localpart()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have resolved the same user meanwhile;
	// keep the first answer so the ambiguity counts stay consistent.
	if existing, ok := r.members[userID]; ok {
		return r.memberLocked(userID, existing), nil
	}
	r.members[userID] = nick
	r.nicks[nick]++
	return r.memberLocked(userID, nick), nil
}

// memberLocked builds a Member snapshot. Caller holds r.mu.
func (r *Roster) memberLocked(userID ref.UserID, nick string) Member {
	return Member{UserID: userID, Nick: nick, Ambiguous: r.nicks[nick] > 1}
}

// Lookup returns a member from the cache without fetching. ok is false
// when the roster has not seen the user.
func (r *Roster) Lookup(userID ref.UserID) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nick, ok := r.members[userID]
	if !ok {
		return Member{}, false
	}
	return r.memberLocked(userID, nick), true
}

// HandleMembershipEvent updates the roster from an m.room.member
// event. isState distinguishes the initial state block from live
// timeline membership changes; the roster treats both the same, the
// caller decides timeline visibility.
func (r *Roster) HandleMembershipEvent(event messaging.Event, isState bool) {
	if event.StateKey == nil {
		r.logger.Warn("membership event without state_key",
			"room_id", r.roomID, "event_id", event.EventID)
		return
	}
	userID, err := ref.ParseUserID(*event.StateKey)
	if err != nil {
		r.logger.Warn("membership event with invalid state_key",
			"room_id", r.roomID, "state_key", *event.StateKey)
		return
	}

	membership, _ := event.Content["membership"].(string)
	displayName, _ := event.Content["displayname"].(string)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch membership {
	case "join":
		nick := displayName
		if nick == "" {
			nick = userID.Localpart()
		}
		if old, ok := r.members[userID]; ok {
			if old == nick {
				return
			}
			r.dropNick(old)
		}
		r.members[userID] = nick
		r.nicks[nick]++
	case "leave", "ban":
		if old, ok := r.members[userID]; ok {
			r.dropNick(old)
			delete(r.members, userID)
		}
	}
}

// Size returns the number of tracked members.
func (r *Roster) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Roster) dropNick(nick string) {
	if r.nicks[nick] <= 1 {
		delete(r.nicks, nick)
		return
	}
	r.nicks[nick]--
}
