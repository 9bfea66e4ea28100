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

// Package startup wires the process-level dependencies both binaries share:
// logging, Mongo-backed storage controllers, Redis, and the queue substrate.
package startup

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/db/redisutil"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/redis/go-redis/v9"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/database/mgo"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

// Version is stamped into the log header of both binaries.
const Version = "1.0.0"

func Logger(conf *config.Config, program string) error {
	return log.InitLoggerFromConfig(
		"chatwire-log",
		program,
		"", "",
		conf.Log.RemainLogLevel,
		conf.Log.IsStdout,
		conf.Log.IsJson,
		conf.Log.StorageLocation,
		conf.Log.RemainRotationCount,
		conf.Log.RotationTime,
		Version,
		conf.Log.IsSimplify,
	)
}

// Databases connects Mongo and assembles both storage controllers on it.
func Databases(ctx context.Context, conf *config.Config) (controller.ChatDatabase, controller.PushDatabase, error) {
	mgocli, err := mongoutil.NewMongoDB(ctx, conf.Mongo.Build())
	if err != nil {
		return nil, nil, err
	}
	db := mgocli.GetDB()
	conversationDB, err := mgo.NewConversationMongo(db)
	if err != nil {
		return nil, nil, err
	}
	messageDB, err := mgo.NewMessageMongo(db)
	if err != nil {
		return nil, nil, err
	}
	statsDB, err := mgo.NewUserStatsMongo(db)
	if err != nil {
		return nil, nil, err
	}
	userDB, err := mgo.NewUserMongo(db)
	if err != nil {
		return nil, nil, err
	}
	notificationDB, err := mgo.NewNotificationMongo(db)
	if err != nil {
		return nil, nil, err
	}
	prefDB, err := mgo.NewNotificationPrefMongo(db)
	if err != nil {
		return nil, nil, err
	}
	tokenDB, err := mgo.NewDeviceTokenMongo(db)
	if err != nil {
		return nil, nil, err
	}
	chatDB := controller.NewChatDatabase(conversationDB, messageDB, statsDB, userDB, mgocli.GetTx())
	pushDB := controller.NewPushDatabase(notificationDB, prefDB, tokenDB, userDB)
	return chatDB, pushDB, nil
}

func Redis(ctx context.Context, conf *config.Config) (redis.UniversalClient, error) {
	return redisutil.NewRedisClient(ctx, conf.Redis.Build())
}

// Queues builds the main/retry/DLQ triple for the configured driver.
func Queues(ctx context.Context, conf *config.Config) (queue.Queues, error) {
	switch conf.Queue.Driver {
	case "memory", "":
		return queue.Queues{
			Main:  queue.NewMemoryQueue(conf.Queue.VisibilityTimeout, conf.Queue.WaitTime),
			Retry: queue.NewMemoryQueue(conf.Queue.VisibilityTimeout, conf.Queue.WaitTime),
			DLQ:   queue.NewMemoryQueue(conf.Queue.VisibilityTimeout, conf.Queue.WaitTime),
		}, nil
	case "sqs":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Queue.Region))
		if err != nil {
			return queue.Queues{}, errs.WrapMsg(err, "load aws config")
		}
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if conf.Queue.Endpoint != "" {
				o.BaseEndpoint = aws.String(conf.Queue.Endpoint)
			}
		})
		return queue.Queues{
			Main:  queue.NewSQSQueue(client, conf.Queue.MainURL, conf.Queue.WaitTime, conf.Queue.VisibilityTimeout),
			Retry: queue.NewSQSQueue(client, conf.Queue.RetryURL, conf.Queue.WaitTime, conf.Queue.VisibilityTimeout),
			DLQ:   queue.NewSQSQueue(client, conf.Queue.DLQURL, conf.Queue.WaitTime, conf.Queue.VisibilityTimeout),
		}, nil
	default:
		return queue.Queues{}, errs.New("unknown queue driver", "driver", conf.Queue.Driver).Wrap()
	}
}
