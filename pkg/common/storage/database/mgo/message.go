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
	"github.com/openimsdk/tools/db/pagination"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func NewMessageMongo(db *mongo.Database) (database.Message, error) {
	coll := db.Collection(database.MessageName)
	_, err := coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			// Serves CountUnread: messages of a conversation not yet read
			// by a given user.
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "read_by", Value: 1},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &MessageMgo{coll: coll}, nil
}

type MessageMgo struct {
	coll *mongo.Collection
}

func (m *MessageMgo) Create(ctx context.Context, msg *model.Message) error {
	err := mongoutil.InsertMany(ctx, m.coll, []*model.Message{msg})
	if err != nil && mongo.IsDuplicateKeyError(errs.Unwrap(err)) {
		// Redelivered write, the message is already stored.
		return nil
	}
	return err
}

func (m *MessageMgo) Take(ctx context.Context, conversationID, messageID string) (*model.Message, error) {
	return mongoutil.FindOne[*model.Message](ctx, m.coll, bson.M{
		"conversation_id": conversationID,
		"message_id":      messageID,
	})
}

func (m *MessageMgo) Page(ctx context.Context, conversationID string, pagination pagination.Pagination) (int64, []*model.Message, error) {
	return mongoutil.FindPage[*model.Message](ctx, m.coll, bson.M{"conversation_id": conversationID}, pagination,
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
}

func (m *MessageMgo) AddReadBy(ctx context.Context, conversationID, messageID, userID string) (bool, error) {
	// Matching on read_by != userID makes the update a test-and-set: a
	// matched document means the user was actually added this call.
	res, err := m.coll.UpdateOne(ctx,
		bson.M{
			"conversation_id": conversationID,
			"message_id":      messageID,
			"read_by":         bson.M{"$ne": userID},
		},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return false, errs.Wrap(err)
	}
	return res.MatchedCount > 0, nil
}

func (m *MessageMgo) AddReadByAll(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := m.coll.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"read_by":         bson.M{"$ne": userID},
		},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return res.ModifiedCount, nil
}

func (m *MessageMgo) SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) (map[string]string, error) {
	filter := bson.M{"conversation_id": conversationID, "message_id": messageID}
	var update bson.M
	if emoji == "" {
		update = bson.M{"$unset": bson.M{"reactions." + userID: ""}}
	} else {
		update = bson.M{"$set": bson.M{"reactions." + userID: emoji}}
	}
	msg, err := mongoutil.FindOneAndUpdate[*model.Message](ctx, m.coll, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err != nil {
		return nil, err
	}
	if msg.Reactions == nil {
		return map[string]string{}, nil
	}
	return msg.Reactions, nil
}

func (m *MessageMgo) CountUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	return mongoutil.Count(ctx, m.coll, bson.M{
		"conversation_id": conversationID,
		"read_by":         bson.M{"$ne": userID},
	})
}
