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

package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/openimsdk/tools/errs"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

// sqsDelayMax is the hard SQS bound on DelaySeconds. Delays beyond it are
// clamped; the retry scheduler never exceeds it anyway.
const sqsDelayMax = 900 * time.Second

// SQSAPI is the slice of the SQS client the adapter uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func NewSQSQueue(client SQSAPI, url string, waitTime, visibility time.Duration) Queue {
	return &sqsQueue{
		client:     client,
		url:        url,
		waitTime:   waitTime,
		visibility: visibility,
	}
}

type sqsQueue struct {
	client     SQSAPI
	url        string
	waitTime   time.Duration
	visibility time.Duration
}

func (q *sqsQueue) Send(ctx context.Context, body []byte, delay time.Duration) error {
	if len(body) > MaxPayloadSize {
		return servererrs.ErrPayloadTooLarge.WrapMsg("queue payload too large", "size", len(body))
	}
	if delay > sqsDelayMax {
		delay = sqsDelayMax
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(string(body)),
	}
	if delay > 0 {
		input.DelaySeconds = int32(delay / time.Second)
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return errs.WrapMsg(err, "sqs send failed", "queue", q.url)
	}
	return nil
}

func (q *sqsQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 || max > ReceiveBatchMax {
		max = ReceiveBatchMax
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(q.waitTime / time.Second),
		VisibilityTimeout:   int32(q.visibility / time.Second),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "sqs receive failed", "queue", q.url)
	}
	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			Body:    []byte(aws.ToString(m.Body)),
			Receipt: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *sqsQueue) Delete(ctx context.Context, receipt string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		return errs.WrapMsg(err, "sqs delete failed", "queue", q.url)
	}
	return nil
}
