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

package msg

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/openimsdk/tools/log"
	"golang.org/x/sync/errgroup"
)

// RecomputeUnread recounts one member's unread messages from read_by and
// overwrites the counter with the result.
func (s *Service) RecomputeUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return s.db.RecomputeUnread(ctx, conversationID, userID)
}

// Inconsistency is one (conversation, user) pair whose stored unread counter
// disagrees with the message truth.
type Inconsistency struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Stored         int64  `json:"stored"`
	Actual         int64  `json:"actual"`
}

// FindInconsistencies reports drifted counters without repairing them.
func (s *Service) FindInconsistencies(ctx context.Context) ([]Inconsistency, error) {
	pairs, err := s.db.ParticipantPairs(ctx)
	if err != nil {
		return nil, err
	}
	concurrency := s.conf.Maintenance.RepairConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var lock sync.Mutex
	var drifted []Inconsistency
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for conversationID, participants := range pairs {
		conversationID, participants := conversationID, participants
		g.Go(func() error {
			for _, userID := range participants {
				stored, actual, err := s.db.UnreadDrift(ctx, conversationID, userID)
				if err != nil {
					log.ZWarn(ctx, "unread drift check failed", err, "conversationID", conversationID, "userID", userID)
					continue
				}
				if stored == actual {
					continue
				}
				lock.Lock()
				drifted = append(drifted, Inconsistency{
					ConversationID: conversationID,
					UserID:         userID,
					Stored:         stored,
					Actual:         actual,
				})
				lock.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return drifted, err
	}
	return drifted, nil
}

// RepairAllUnread walks every (conversation, participant) pair and rebuilds
// the unread counters from message truth. Counters drift when the write
// path degrades; this is the repair. Per-pair failures are logged and
// skipped so one bad row never aborts the sweep.
func (s *Service) RepairAllUnread(ctx context.Context) (int64, error) {
	pairs, err := s.db.ParticipantPairs(ctx)
	if err != nil {
		return 0, err
	}
	concurrency := s.conf.Maintenance.RepairConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var repaired atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for conversationID, participants := range pairs {
		conversationID, participants := conversationID, participants
		g.Go(func() error {
			for _, userID := range participants {
				if _, err := s.db.RecomputeUnread(ctx, conversationID, userID); err != nil {
					log.ZWarn(ctx, "unread recompute failed", err, "conversationID", conversationID, "userID", userID)
					continue
				}
				repaired.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return repaired.Load(), err
	}
	log.ZInfo(ctx, "unread repair sweep done", "rows", repaired.Load(), "conversations", len(pairs))
	return repaired.Load(), nil
}
