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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func NewConversationMongo(db *mongo.Database) (database.Conversation, error) {
	coll := db.Collection(database.ConversationName)
	_, err := coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// One direct conversation per participant pair. The partial
			// filter keeps group documents out of the unique constraint.
			Keys: bson.D{{Key: "participant_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.M{"type": constant.ConversationTypeDirect},
			),
		},
		{
			Keys: bson.D{
				{Key: "participants", Value: 1},
				{Key: "last_message_time", Value: -1},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &ConversationMgo{coll: coll}, nil
}

type ConversationMgo struct {
	coll *mongo.Collection
}

func (c *ConversationMgo) Create(ctx context.Context, conversation *model.Conversation) error {
	return mongoutil.InsertMany(ctx, c.coll, []*model.Conversation{conversation})
}

func (c *ConversationMgo) Take(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return mongoutil.FindOne[*model.Conversation](ctx, c.coll, bson.M{"conversation_id": conversationID})
}

func (c *ConversationMgo) TakeDirectByHash(ctx context.Context, participantHash string) (*model.Conversation, error) {
	return mongoutil.FindOne[*model.Conversation](ctx, c.coll, bson.M{
		"type":             constant.ConversationTypeDirect,
		"participant_hash": participantHash,
	})
}

func (c *ConversationMgo) Page(ctx context.Context, userID, convType string, onlyIDs []string, pagination pagination.Pagination) (int64, []*model.Conversation, error) {
	filter := bson.M{"participants": userID}
	if convType != "" {
		filter["type"] = convType
	}
	if onlyIDs != nil {
		filter["conversation_id"] = bson.M{"$in": onlyIDs}
	}
	return mongoutil.FindPage[*model.Conversation](ctx, c.coll, filter, pagination,
		options.Find().SetSort(bson.D{{Key: "last_message_time", Value: -1}}))
}

func (c *ConversationMgo) UpdateInfo(ctx context.Context, conversationID string, args map[string]any) error {
	if len(args) == 0 {
		return nil
	}
	return mongoutil.UpdateOne(ctx, c.coll, bson.M{"conversation_id": conversationID}, bson.M{"$set": args}, true)
}

func (c *ConversationMgo) AddParticipant(ctx context.Context, conversationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return mongoutil.UpdateOne(ctx, c.coll,
		bson.M{"conversation_id": conversationID},
		bson.M{"$addToSet": bson.M{"participants": bson.M{"$each": userIDs}}},
		true,
	)
}

func (c *ConversationMgo) UpdatePreview(ctx context.Context, conversationID string, args map[string]any) error {
	return mongoutil.UpdateOne(ctx, c.coll, bson.M{"conversation_id": conversationID}, bson.M{"$set": args}, false)
}

func (c *ConversationMgo) FindIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	return mongoutil.Find[string](ctx, c.coll, bson.M{"participants": userID},
		options.Find().SetProjection(bson.M{"_id": 0, "conversation_id": 1}))
}

func (c *ConversationMgo) ParticipantPairs(ctx context.Context) (map[string][]string, error) {
	type pair struct {
		ConversationID string   `bson:"conversation_id"`
		Participants   []string `bson:"participants"`
	}
	pairs, err := mongoutil.Find[pair](ctx, c.coll, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 0, "conversation_id": 1, "participants": 1}))
	if err != nil {
		return nil, err
	}
	res := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		res[p.ConversationID] = p.Participants
	}
	return res, nil
}
