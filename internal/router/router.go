// Package router turns change events into cache merges. Every handler
// trusts only the identifier in the payload and lets the follow-up
// fetch supply the data, except deletes, where the vanished row's id
// is all that exists and is applied directly. Malformed events are
// logged and dropped; they never crash the router or touch a store.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chatapp-client/internal/cache"
	"chatapp-client/internal/models"
	"chatapp-client/internal/transport"

	"go.uber.org/zap"
)

// State tracks one subscription scope.
type State int

const (
	Unsubscribed State = iota
	Subscribing
	Active
)

// ErrNotReady is returned when Start is called before its dependencies
// exist. Subscribing without them is disallowed outright rather than
// detected later.
var ErrNotReady = errors.New("router: dependencies not ready")

// Router owns two subscription scopes: a session scope that lives for
// the whole session, and a channel scope that is torn down and
// re-opened every time the active text channel changes.
type Router struct {
	sugar *zap.SugaredLogger
	tr    transport.Transport
	cache *cache.Cache

	ctx context.Context

	mu           sync.Mutex
	sessionState State
	sessionSubs  []*transport.Subscription
	channelState State
	channelSubs  []*transport.Subscription
}

func New(sugar *zap.SugaredLogger, tr transport.Transport, c *cache.Cache) *Router {
	return &Router{
		sugar: sugar,
		tr:    tr,
		cache: c,
	}
}

// SessionState reports the session scope's subscription state.
func (r *Router) SessionState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionState
}

// ChannelState reports the channel scope's subscription state.
func (r *Router) ChannelState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channelState
}

// Start opens the session scope. It refuses to run until the cache,
// the transport and the session user id all exist.
func (r *Router) Start(ctx context.Context) error {
	if r.tr == nil || r.cache == nil || r.cache.UserID() == 0 {
		return ErrNotReady
	}

	r.mu.Lock()
	if r.sessionState != Unsubscribed {
		r.mu.Unlock()
		return fmt.Errorf("router: session scope already started")
	}
	r.sessionState = Subscribing
	r.mu.Unlock()

	r.ctx = ctx

	subs, err := r.openSessionSubs(ctx)
	if err != nil {
		for _, s := range subs {
			s.Close()
		}
		r.mu.Lock()
		r.sessionState = Unsubscribed
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.sessionSubs = subs
	r.sessionState = Active
	r.mu.Unlock()

	return nil
}

func (r *Router) openSessionSubs(ctx context.Context) ([]*transport.Subscription, error) {
	var subs []*transport.Subscription

	members, err := r.tr.Subscribe(ctx, "server_members", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, members)
	members.
		On(transport.OpInsert, func(e transport.Event) {
			id, ok := e.New.ID("id")
			if !ok {
				r.dropEvent(e, "no membership id in new image")
				return
			}
			r.cache.AddServer(r.ctx, id)
		}).
		On(transport.OpDelete, func(e transport.Event) {
			// the old image carries the membership id, not the server
			// id, so the precise delete is unknowable; fall back to a
			// full refresh
			r.cache.RefreshServers(r.ctx)
		})

	servers, err := r.tr.Subscribe(ctx, "servers", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, servers)
	servers.
		On(transport.OpUpdate, func(e transport.Event) {
			id, ok := e.New.ID("id")
			if !ok {
				r.dropEvent(e, "no server id in new image")
				return
			}
			r.cache.UpdateServer(r.ctx, id)
		}).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("id")
			if !ok {
				r.dropEvent(e, "no server id in old image")
				return
			}
			r.cache.RemoveServer(id)
		})

	roles, err := r.tr.Subscribe(ctx, "roles", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, roles)
	roles.
		On(transport.OpInsert, r.fetchByNewID("role", r.cache.AddRole)).
		On(transport.OpUpdate, r.fetchByNewID("role", r.cache.UpdateRole)).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("id")
			if !ok {
				r.dropEvent(e, "no role id in old image")
				return
			}
			r.cache.RemoveRole(id)
		})

	relations, err := r.tr.Subscribe(ctx, "relations", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, relations)
	relations.
		On(transport.OpInsert, r.fetchByNewID("relation", r.cache.AddRelation)).
		On(transport.OpUpdate, r.fetchByNewID("relation", r.cache.UpdateRelation)).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("id")
			if !ok {
				r.dropEvent(e, "no relation id in old image")
				return
			}
			r.cache.RemoveRelation(id)
		})

	dms, err := r.tr.Subscribe(ctx, "dm_channels", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, dms)
	dms.
		On(transport.OpInsert, r.fetchByNewID("DM channel", r.cache.AddDMChannel)).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("id")
			if !ok {
				r.dropEvent(e, "no DM channel id in old image")
				return
			}
			r.cache.RemoveDMChannel(id)
		})

	presence, err := r.tr.Subscribe(ctx, "presence", nil)
	if err != nil {
		return subs, err
	}
	subs = append(subs, presence)
	presence.
		On(transport.OpInsert, r.handlePresenceJoin).
		On(transport.OpUpdate, r.handlePresenceJoin).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("user_id")
			if !ok {
				r.dropEvent(e, "no user id in old image")
				return
			}
			r.cache.MarkOffline(id)
		})

	return subs, nil
}

// fetchByNewID builds the common handler shape: take the id from the
// new image, re-fetch, merge.
func (r *Router) fetchByNewID(what string, op func(context.Context, int64)) transport.Handler {
	return func(e transport.Event) {
		id, ok := e.New.ID("id")
		if !ok {
			r.dropEvent(e, "no "+what+" id in new image")
			return
		}
		op(r.ctx, id)
	}
}

// handlePresenceJoin is the one place payload fields beyond the id are
// used: presence is transport-ephemeral, there is no row to re-fetch.
func (r *Router) handlePresenceJoin(e transport.Event) {
	id, ok := e.New.ID("user_id")
	if !ok {
		r.dropEvent(e, "no user id in new image")
		return
	}

	var info models.PresenceInfo
	if err := decodeRow(e.New, &info); err != nil {
		r.dropEvent(e, err.Error())
		return
	}

	r.cache.MarkOnline(id, info)
}

// SetActiveChannel tears down the channel scope, clears the message
// log, re-subscribes filtered to the new channel, and kicks off the
// permission recompute and message reload. A nil channel just clears.
func (r *Router) SetActiveChannel(ch *models.Channel) error {
	r.mu.Lock()
	if r.sessionState != Active {
		r.mu.Unlock()
		return ErrNotReady
	}
	old := r.channelSubs
	r.channelSubs = nil
	r.channelState = Unsubscribed
	r.mu.Unlock()

	// stale filtered subscriptions must never deliver events for a
	// channel the user has left
	for _, s := range old {
		s.Close()
	}

	r.cache.SetChannel(ch)
	if ch == nil {
		return nil
	}

	r.mu.Lock()
	r.channelState = Subscribing
	r.mu.Unlock()

	filter := &transport.Filter{Column: "channel_id", Equals: ch.ID}

	messages, err := r.tr.Subscribe(r.ctx, "messages", filter)
	if err != nil {
		r.failChannelScope(nil)
		return err
	}
	messages.
		On(transport.OpInsert, func(e transport.Event) {
			id, ok := e.New.ID("id")
			if !ok {
				r.dropEvent(e, "no message id in new image")
				return
			}
			r.cache.AddMessage(r.ctx, id)
		}).
		On(transport.OpUpdate, func(e transport.Event) {
			id, ok := e.New.ID("id")
			if !ok {
				r.dropEvent(e, "no message id in new image")
				return
			}
			r.cache.UpdateMessage(r.ctx, id)
		}).
		On(transport.OpDelete, func(e transport.Event) {
			id, ok := e.Old.ID("id")
			if !ok {
				r.dropEvent(e, "no message id in old image")
				return
			}
			r.cache.RemoveMessage(id)
		})

	perms, err := r.tr.Subscribe(r.ctx, "channel_permissions", filter)
	if err != nil {
		r.failChannelScope([]*transport.Subscription{messages})
		return err
	}
	channelID := ch.ID
	perms.On(transport.OpAll, func(e transport.Event) {
		r.cache.RecomputeChannelPerms(r.ctx, channelID)
	})

	r.mu.Lock()
	r.channelSubs = []*transport.Subscription{messages, perms}
	r.channelState = Active
	r.mu.Unlock()

	r.cache.RecomputeChannelPerms(r.ctx, ch.ID)
	r.cache.RefreshMessages(r.ctx, ch.ID)

	return nil
}

func (r *Router) failChannelScope(opened []*transport.Subscription) {
	for _, s := range opened {
		s.Close()
	}
	r.mu.Lock()
	r.channelState = Unsubscribed
	r.mu.Unlock()
}

// Stop closes both scopes. Fetches already in flight are not aborted;
// their merges land and nothing further is delivered.
func (r *Router) Stop() {
	r.mu.Lock()
	subs := append(r.channelSubs, r.sessionSubs...)
	r.channelSubs = nil
	r.sessionSubs = nil
	r.channelState = Unsubscribed
	r.sessionState = Unsubscribed
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (r *Router) dropEvent(e transport.Event, reason string) {
	r.sugar.Errorf("Dropping %s event on [%s]: %s", e.Operation, e.Table, reason)
}

func decodeRow(row transport.Row, dst any) error {
	bytes, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, dst)
}
