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

func NewDeviceTokenMongo(db *mongo.Database) (database.DeviceToken, error) {
	coll := db.Collection(database.DeviceTokenName)
	_, err := coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "token", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &DeviceTokenMgo{coll: coll}, nil
}

type DeviceTokenMgo struct {
	coll *mongo.Collection
}

func (d *DeviceTokenMgo) FindByUser(ctx context.Context, userID string) ([]*model.DeviceToken, error) {
	return mongoutil.Find[*model.DeviceToken](ctx, d.coll, bson.M{"user_id": userID})
}

func (d *DeviceTokenMgo) Upsert(ctx context.Context, token *model.DeviceToken) error {
	_, err := d.coll.UpdateOne(ctx,
		bson.M{"user_id": token.UserID, "token": token.Token},
		bson.M{"$set": bson.M{
			"device_type":  token.DeviceType,
			"last_updated": time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (d *DeviceTokenMgo) Delete(ctx context.Context, userID, token string) error {
	return mongoutil.DeleteOne(ctx, d.coll, bson.M{"user_id": userID, "token": token})
}
