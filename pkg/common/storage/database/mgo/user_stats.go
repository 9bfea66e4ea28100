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

func NewUserStatsMongo(db *mongo.Database) (database.UserStats, error) {
	coll := db.Collection(database.UserStatsName)
	_, err := coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, err
	}
	return &UserStatsMgo{coll: coll}, nil
}

type UserStatsMgo struct {
	coll *mongo.Collection
}

func (s *UserStatsMgo) Init(ctx context.Context, stats []*model.UserStats) error {
	if len(stats) == 0 {
		return nil
	}
	err := mongoutil.InsertMany(ctx, s.coll, stats)
	if err != nil && mongo.IsDuplicateKeyError(errs.Unwrap(err)) {
		return nil
	}
	return err
}

func (s *UserStatsMgo) Take(ctx context.Context, conversationID, userID string) (*model.UserStats, error) {
	return mongoutil.FindOne[*model.UserStats](ctx, s.coll, bson.M{
		"conversation_id": conversationID,
		"user_id":         userID,
	})
}

func (s *UserStatsMgo) FindByConversations(ctx context.Context, conversationIDs []string, userID string) ([]*model.UserStats, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	return mongoutil.Find[*model.UserStats](ctx, s.coll, bson.M{
		"conversation_id": bson.M{"$in": conversationIDs},
		"user_id":         userID,
	})
}

func (s *UserStatsMgo) IncrUnread(ctx context.Context, conversationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(userIDs))
	for _, userID := range userIDs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"conversation_id": conversationID, "user_id": userID}).
			SetUpdate(bson.M{
				"$inc":         bson.M{"unread_count": 1},
				"$setOnInsert": bson.M{"last_read_message_id": ""},
			}).
			SetUpsert(true))
	}
	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return errs.Wrap(err)
}

func (s *UserStatsMgo) DecrUnread(ctx context.Context, conversationID, userID string) error {
	// Pipeline update so the decrement clamps at zero in one round trip.
	update := bson.A{bson.M{"$set": bson.M{
		"unread_count": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$unread_count", -1}}}},
	}}}
	return mongoutil.UpdateOne(ctx, s.coll,
		bson.M{"conversation_id": conversationID, "user_id": userID}, update, false)
}

func (s *UserStatsMgo) ResetUnread(ctx context.Context, conversationID, userID string, lastReadMessageID string) error {
	set := bson.M{"unread_count": 0}
	if lastReadMessageID != "" {
		set["last_read_message_id"] = lastReadMessageID
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *UserStatsMgo) SetUnread(ctx context.Context, conversationID, userID string, count int64) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		bson.M{"$set": bson.M{"unread_count": count}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *UserStatsMgo) UnreadConversationIDs(ctx context.Context, userID string) ([]string, error) {
	return mongoutil.Find[string](ctx, s.coll,
		bson.M{"user_id": userID, "unread_count": bson.M{"$gt": 0}},
		options.Find().SetProjection(bson.M{"_id": 0, "conversation_id": 1}))
}
