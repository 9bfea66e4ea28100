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

package mgo

import (
	"context"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func NewNotificationMongo(db *mongo.Database) (database.Notification, error) {
	coll := db.Collection(database.NotificationName)
	_, err := coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "notification_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &NotificationMgo{coll: coll}, nil
}

type NotificationMgo struct {
	coll *mongo.Collection
}

func (n *NotificationMgo) Create(ctx context.Context, notification *model.Notification) (bool, error) {
	err := mongoutil.InsertMany(ctx, n.coll, []*model.Notification{notification})
	if err != nil {
		if mongo.IsDuplicateKeyError(errs.Unwrap(err)) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (n *NotificationMgo) Find(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	opt := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opt.SetLimit(int64(limit))
	}
	return mongoutil.Find[*model.Notification](ctx, n.coll, bson.M{"user_id": userID}, opt)
}

func (n *NotificationMgo) MarkRead(ctx context.Context, userID string, notificationIDs []string) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	return mongoutil.Ignore(n.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "notification_id": bson.M{"$in": notificationIDs}},
		bson.M{"$set": bson.M{"is_read": true}},
	))
}
