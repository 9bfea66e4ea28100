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

func NewNotificationPrefMongo(db *mongo.Database) (database.NotificationPref, error) {
	coll := db.Collection(database.NotificationPrefName)
	_, err := coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &NotificationPrefMgo{coll: coll}, nil
}

type NotificationPrefMgo struct {
	coll *mongo.Collection
}

func (p *NotificationPrefMgo) Take(ctx context.Context, userID string) (*model.NotificationPref, error) {
	return mongoutil.FindOne[*model.NotificationPref](ctx, p.coll, bson.M{"user_id": userID})
}

func (p *NotificationPrefMgo) Set(ctx context.Context, pref *model.NotificationPref) error {
	_, err := p.coll.ReplaceOne(ctx, bson.M{"user_id": pref.UserID}, pref, options.Replace().SetUpsert(true))
	return errs.Wrap(err)
}
