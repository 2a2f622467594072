package messages

import (
	"context"

	"asperitas/pkg/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MessagesRepoMongo struct {
	collection common.CollectionHelper
}

func NewMessagesRepoMongo(db *mongo.Database) *MessagesRepoMongo {
	return &MessagesRepoMongo{collection: &common.MongoCollection{Collection: db.Collection("messages")}}
}

func (r *MessagesRepoMongo) Add(ctx context.Context, m *Message) (interface{}, error) {
	res, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}

	return res.GetInsertedID(), nil
}

func (r *MessagesRepoMongo) Inbox(ctx context.Context, userID int64) ([]*Message, error) {
	return r.getByField(ctx, bson.M{"toID": userID})
}

func (r *MessagesRepoMongo) Sent(ctx context.Context, userID int64) ([]*Message, error) {
	return r.getByField(ctx, bson.M{"fromID": userID})
}

// MarkRead flips the read flag; only the recipient can do it.
func (r *MessagesRepoMongo) MarkRead(ctx context.Context, id interface{}, userID int64) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "toID": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}

	if res.GetMatchedCount() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *MessagesRepoMongo) ParseID(in string) (interface{}, error) {
	return primitive.ObjectIDFromHex(in)
}

func (r *MessagesRepoMongo) getByField(ctx context.Context, filter bson.M) ([]*Message, error) {
	cur, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	defer cur.Close(ctx)

	var msgs []*Message
	err = cur.All(ctx, &msgs)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}
