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

// Package sns publishes web push notifications to an SNS topic; a separate
// delivery worker outside this system fans them out to browsers.
package sns

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/openimsdk/tools/errs"

	"github.com/chatwire/chatwire-server/pkg/common/config"
)

type Publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher returns nil without error when no topic is configured; web
// push is optional.
func NewPublisher(ctx context.Context, conf *config.SNS) (*Publisher, error) {
	if conf.TopicARN == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, errs.WrapMsg(err, "load aws config failed")
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: conf.TopicARN}, nil
}

type webNotification struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Publish posts one web notification onto the topic, tagged with the
// recipient so subscribers can filter.
func (p *Publisher) Publish(ctx context.Context, userID, title, body string, data map[string]string) error {
	payload, err := json.Marshal(webNotification{UserID: userID, Title: title, Body: body, Data: data})
	if err != nil {
		return errs.Wrap(err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"userId": {DataType: aws.String("String"), StringValue: aws.String(userID)},
		},
	})
	if err != nil {
		return errs.WrapMsg(err, "sns publish failed", "userID", userID)
	}
	return nil
}
