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
	"time"
)

// graceTimers holds one cancellable offline-grace timer per user. The timer
// lives at user granularity: reconnects cancel it, and the expiry callback
// re-checks presence before declaring the user offline.
type graceTimers struct {
	lock   sync.Mutex
	grace  time.Duration
	timers map[string]*time.Timer
}

func newGraceTimers(grace time.Duration) *graceTimers {
	return &graceTimers{
		grace:  grace,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms the user's grace timer, replacing any pending one. expire
// runs once after the grace window unless Cancel intervenes.
func (g *graceTimers) Schedule(userID string, expire func()) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if timer, ok := g.timers[userID]; ok {
		timer.Stop()
	}
	g.timers[userID] = time.AfterFunc(g.grace, func() {
		g.lock.Lock()
		delete(g.timers, userID)
		g.lock.Unlock()
		expire()
	})
}

// Cancel disarms the user's timer, if armed. Returns whether a timer was
// pending.
func (g *graceTimers) Cancel(userID string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	timer, ok := g.timers[userID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(g.timers, userID)
	return true
}

func (g *graceTimers) StopAll() {
	g.lock.Lock()
	defer g.lock.Unlock()
	for userID, timer := range g.timers {
		timer.Stop()
		delete(g.timers, userID)
	}
}
