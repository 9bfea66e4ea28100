// Copyright © 2024 Chatwire. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msggateway

import (
	"context"
	"sync"

	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/utils/datautil"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// Subscription tracks which conversations this instance serves, derived
// from the local sockets. The bus must be subscribed to exactly the channel
// of every served conversation.
type Subscription struct {
	lock      sync.RWMutex
	userConvs map[string]map[string]struct{}
	convUsers map[string]map[string]struct{}
}

func newSubscription() *Subscription {
	return &Subscription{
		userConvs: make(map[string]map[string]struct{}),
		convUsers: make(map[string]map[string]struct{}),
	}
}

// SetUserConversations replaces the conversation set of a local user.
func (s *Subscription) SetUserConversations(userID string, conversationIDs []string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.dropUserLocked(userID)
	convs := make(map[string]struct{}, len(conversationIDs))
	for _, convID := range conversationIDs {
		convs[convID] = struct{}{}
		users, ok := s.convUsers[convID]
		if !ok {
			users = make(map[string]struct{})
			s.convUsers[convID] = users
		}
		users[userID] = struct{}{}
	}
	s.userConvs[userID] = convs
}

// AddUserConversation records a single new membership, e.g. when a served
// user is added to a conversation mid-session.
func (s *Subscription) AddUserConversation(userID, conversationID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.userConvs[userID]; !ok {
		// Not a local user; nothing to serve.
		return
	}
	s.userConvs[userID][conversationID] = struct{}{}
	users, ok := s.convUsers[conversationID]
	if !ok {
		users = make(map[string]struct{})
		s.convUsers[conversationID] = users
	}
	users[userID] = struct{}{}
}

// DropUser removes a user with no local sockets left.
func (s *Subscription) DropUser(userID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.dropUserLocked(userID)
}

func (s *Subscription) dropUserLocked(userID string) {
	for convID := range s.userConvs[userID] {
		users := s.convUsers[convID]
		delete(users, userID)
		if len(users) == 0 {
			delete(s.convUsers, convID)
		}
	}
	delete(s.userConvs, userID)
}

// UsersOfConversation lists the local users served for conversationID.
func (s *Subscription) UsersOfConversation(conversationID string) []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return datautil.Keys(s.convUsers[conversationID])
}

// ServedConversations lists every conversation with at least one local user.
func (s *Subscription) ServedConversations() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return datautil.Keys(s.convUsers)
}

// Channels is the exact bus channel set this instance should consume.
func (s *Subscription) Channels() []string {
	served := s.ServedConversations()
	channels := make([]string, 0, len(served))
	for _, convID := range served {
		channels = append(channels, constant.ConversationChannel(convID))
	}
	return channels
}

// Reconcile diffs the wanted channel set against the bus's live
// subscriptions and the registry's advertised set, applying only the
// difference. Safe to call from both the connect path and the periodic
// sync.
func (s *Subscription) Reconcile(ctx context.Context, bus pubsub.Bus, registry cache.ConnRegistry, instanceID string) {
	want := s.Channels()
	have := bus.Channels()
	if add := datautil.SliceSub(want, have); len(add) > 0 {
		if err := bus.Subscribe(ctx, add...); err != nil {
			log.ZWarn(ctx, "bus subscribe failed", err, "channels", add)
		}
	}
	if del := datautil.SliceSub(have, want); len(del) > 0 {
		if err := bus.Unsubscribe(ctx, del...); err != nil {
			log.ZWarn(ctx, "bus unsubscribe failed", err, "channels", del)
		}
	}
	if err := registry.SetSubscriptions(ctx, instanceID, want); err != nil {
		log.ZWarn(ctx, "registry subscription sync failed", err, "instanceID", instanceID)
	}
}
