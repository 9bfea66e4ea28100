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
	"time"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func NewUserMongo(db *mongo.Database) (database.User, error) {
	coll := db.Collection(database.UserName)
	_, err := coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &UserMgo{coll: coll}, nil
}

type UserMgo struct {
	coll *mongo.Collection
}

func (u *UserMgo) Take(ctx context.Context, userID string) (*model.User, error) {
	return mongoutil.FindOne[*model.User](ctx, u.coll, bson.M{"user_id": userID})
}

func (u *UserMgo) Find(ctx context.Context, userIDs []string) ([]*model.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return mongoutil.Find[*model.User](ctx, u.coll, bson.M{"user_id": bson.M{"$in": userIDs}})
}

func (u *UserMgo) Upsert(ctx context.Context, user *model.User) error {
	_, err := u.coll.UpdateOne(ctx,
		bson.M{"user_id": user.UserID},
		bson.M{
			"$set": bson.M{
				"is_online":   user.IsOnline,
				"last_active": user.LastActive,
			},
			"$setOnInsert": bson.M{
				"name":                 user.Name,
				"status":               user.Status,
				"unread_notifications": int64(0),
			},
		},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (u *UserMgo) SetOnline(ctx context.Context, userID string, online bool) error {
	return mongoutil.UpdateOne(ctx, u.coll,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"is_online": online, "last_active": time.Now()}},
		false,
	)
}

func (u *UserMgo) SetStatus(ctx context.Context, userID, status string) error {
	return mongoutil.UpdateOne(ctx, u.coll,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"status": status, "last_active": time.Now()}},
		false,
	)
}

func (u *UserMgo) IncrUnreadNotifications(ctx context.Context, userID string, delta int64) error {
	_, err := u.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"unread_notifications": delta}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}
