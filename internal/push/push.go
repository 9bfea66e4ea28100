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

// Package push is the notification consumer: it drains the main and retry
// queues, records notification rows and pushes to offline devices.
package push

import (
	"context"

	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mcontext"
	"golang.org/x/sync/errgroup"

	"github.com/chatwire/chatwire-server/internal/push/offlinepush"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/sns"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

type Consumer struct {
	conf   *config.Config
	chatDB controller.ChatDatabase
	pushDB controller.PushDatabase
	queues queue.Queues
	pusher offlinepush.OfflinePusher
	web    *sns.Publisher // nil unless an SNS topic is configured
}

func NewConsumer(
	conf *config.Config,
	chatDB controller.ChatDatabase,
	pushDB controller.PushDatabase,
	queues queue.Queues,
	pusher offlinepush.OfflinePusher,
	web *sns.Publisher,
) *Consumer {
	return &Consumer{
		conf:   conf,
		chatDB: chatDB,
		pushDB: pushDB,
		queues: queues,
		pusher: pusher,
		web:    web,
	}
}

// Start runs the main and retry pollers until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.poll(ctx, c.queues.Main, "main") })
	g.Go(func() error { return c.poll(ctx, c.queues.Retry, "retry") })
	return g.Wait()
}

// poll is one long-poll loop. Receive errors back off implicitly through
// the queue's wait time; messages are processed sequentially, matching the
// visibility window.
func (c *Consumer) poll(ctx context.Context, q queue.Queue, name string) error {
	log.ZInfo(ctx, "queue poller started", "queue", name)
	for {
		select {
		case <-ctx.Done():
			log.ZInfo(ctx, "queue poller stopped", "queue", name)
			return ctx.Err()
		default:
		}
		messages, err := q.Receive(ctx, queue.ReceiveBatchMax)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.ZWarn(ctx, "queue receive failed", err, "queue", name)
			continue
		}
		for _, message := range messages {
			c.process(mcontext.NewCtx("push-"+name), q, message)
		}
	}
}

// process runs one delivery through the dispatcher and settles the source
// message: delete on success or permanent failure, retry_send otherwise.
func (c *Consumer) process(ctx context.Context, source queue.Queue, message queue.Message) {
	event, err := pushevent.Decode(message.Body)
	if err != nil {
		log.ZWarn(ctx, "dropping undecodable queue message", err)
		c.deleteSource(ctx, source, message.Receipt)
		return
	}
	if !event.Known() {
		log.ZWarn(ctx, "dropping unknown queue event", nil, "event", event.Event)
		c.deleteSource(ctx, source, message.Receipt)
		return
	}

	err = c.dispatch(ctx, event)
	switch {
	case err == nil:
		c.deleteSource(ctx, source, message.Receipt)
	case servererrs.ErrPermanent.Is(err):
		log.ZWarn(ctx, "dropping permanently failed event", err, "event", event.Event, "messageID", event.MessageID)
		c.deleteSource(ctx, source, message.Receipt)
	default:
		log.ZWarn(ctx, "event failed, scheduling retry", err, "event", event.Event, "retryCount", event.RetryCount)
		c.retrySend(ctx, event)
		c.deleteSource(ctx, source, message.Receipt)
	}
}

func (c *Consumer) deleteSource(ctx context.Context, source queue.Queue, receipt string) {
	if err := source.Delete(ctx, receipt); err != nil {
		// The message becomes visible again and reprocesses; dedup on the
		// notification id absorbs it.
		log.ZWarn(ctx, "queue delete failed", err, "receipt", receipt)
	}
}

func (c *Consumer) dispatch(ctx context.Context, event *pushevent.Event) error {
	switch event.Event {
	case constant.EventNewMessage:
		return c.handleNewMessage(ctx, event)
	case constant.EventGroupInvitation:
		return c.handleGroupInvitation(ctx, event)
	case constant.EventFriendRequest:
		return c.handleFriendRequest(ctx, event)
	case constant.EventDirectConvCreated, constant.EventGroupConvCreated:
		return c.handleConversationCreated(ctx, event)
	default:
		return servererrs.ErrPermanent.WrapMsg("no handler", "event", event.Event)
	}
}

// HandleBody processes one encoded event in-process. The write path calls
// it when the queue substrate is down; there is no retry in this mode.
func (c *Consumer) HandleBody(ctx context.Context, body []byte) {
	event, err := pushevent.Decode(body)
	if err != nil {
		log.ZWarn(ctx, "inline notification decode failed", err)
		return
	}
	if !event.Known() {
		log.ZWarn(ctx, "inline notification with unknown event", nil, "event", event.Event)
		return
	}
	if err := c.dispatch(ctx, event); err != nil {
		log.ZWarn(ctx, "inline notification processing failed", err, "event", event.Event)
	}
}
