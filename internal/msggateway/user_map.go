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
	"sync"
)

// UserMap is the in-process socket index: userID to its live connections.
// It is the source of truth for local delivery; the redis registry only
// mirrors it for cross-instance presence.
type UserMap interface {
	// GetAll returns every live connection of userID.
	GetAll(userID string) ([]*Client, bool)
	Get(userID, connID string) (*Client, bool)
	// Set registers the connection and reports whether it is the user's
	// first one on this instance.
	Set(userID string, client *Client) (first bool)
	// DeleteClients removes the given connections and reports whether the
	// user has none left locally.
	DeleteClients(userID string, clients []*Client) (isDeleteUser bool)
	AllUserIDs() []string
}

func newUserMap() UserMap {
	return &userMap{data: make(map[string]map[string]*Client)}
}

type userMap struct {
	lock sync.RWMutex
	data map[string]map[string]*Client
}

func (u *userMap) GetAll(userID string) ([]*Client, bool) {
	u.lock.RLock()
	defer u.lock.RUnlock()
	conns, ok := u.data[userID]
	if !ok {
		return nil, false
	}
	clients := make([]*Client, 0, len(conns))
	for _, client := range conns {
		clients = append(clients, client)
	}
	return clients, true
}

func (u *userMap) Get(userID, connID string) (*Client, bool) {
	u.lock.RLock()
	defer u.lock.RUnlock()
	conns, ok := u.data[userID]
	if !ok {
		return nil, false
	}
	client, ok := conns[connID]
	return client, ok
}

func (u *userMap) Set(userID string, client *Client) bool {
	u.lock.Lock()
	defer u.lock.Unlock()
	conns, ok := u.data[userID]
	if !ok {
		conns = make(map[string]*Client)
		u.data[userID] = conns
	}
	conns[client.ConnID] = client
	return !ok
}

func (u *userMap) DeleteClients(userID string, clients []*Client) bool {
	if len(clients) == 0 {
		return false
	}
	u.lock.Lock()
	defer u.lock.Unlock()
	conns, ok := u.data[userID]
	if !ok {
		return false
	}
	for _, client := range clients {
		delete(conns, client.ConnID)
	}
	if len(conns) == 0 {
		delete(u.data, userID)
		return true
	}
	return false
}

func (u *userMap) AllUserIDs() []string {
	u.lock.RLock()
	defer u.lock.RUnlock()
	userIDs := make([]string, 0, len(u.data))
	for userID := range u.data {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}
