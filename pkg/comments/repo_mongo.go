package comments

import (
	"context"

	"asperitas/pkg/common"
	"asperitas/pkg/vote"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const casAttempts = 5

// CommentsRepoMongo owns both the comments collection and the posts
// collection: recording or deleting a comment must move the post's
// commentCount inside the same repo operation.
type CommentsRepoMongo struct {
	collection common.CollectionHelper
	posts      common.CollectionHelper
}

func NewCommentsRepoMongo(db *mongo.Database) *CommentsRepoMongo {
	return &CommentsRepoMongo{
		collection: &common.MongoCollection{Collection: db.Collection("comments")},
		posts:      &common.MongoCollection{Collection: db.Collection("posts")},
	}
}

func (repo *CommentsRepoMongo) GetByPostID(ctx context.Context, postID interface{}) ([]*Comment, error) {
	cur, err := repo.collection.Find(ctx, bson.M{"postID": postID})
	if err != nil {
		return nil, err
	}

	defer cur.Close(ctx)

	var comments []*Comment
	err = cur.All(ctx, &comments)
	if err != nil {
		return nil, err
	}

	return comments, nil
}

// Tree loads the post's comments in stored order and assembles the forest.
// The ErrMalformedInput warning from the builder is passed through with the
// complete forest.
func (repo *CommentsRepoMongo) Tree(ctx context.Context, postID interface{}) ([]*Node, error) {
	flat, err := repo.GetByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	return BuildTree(flat)
}

func (repo *CommentsRepoMongo) GetByID(ctx context.Context, id interface{}) (*Comment, error) {
	res := repo.collection.FindOne(ctx, bson.M{"_id": id})

	comment := &Comment{}
	err := res.Decode(comment)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// Record inserts the comment and increments the post's commentCount as one
// unit. ErrNotFound for a missing post or parent, ErrCrossPostParent when
// the parent hangs under a different post. If the post disappears between
// insert and counter update the inserted comment is removed again, so no
// partial effect survives.
func (repo *CommentsRepoMongo) Record(ctx context.Context, postID, parentID interface{}, authorID int64, body string) (*Comment, error) {
	if err := repo.checkPostExists(ctx, postID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := repo.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, ErrCrossPostParent
		}
	}

	comment := NewComment(postID, parentID, authorID, body)

	res, err := repo.collection.InsertOne(ctx, comment)
	if err != nil {
		return nil, err
	}
	comment.ID = res.GetInsertedID()

	upd, err := repo.posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"commentCount": 1}})
	if err != nil {
		return nil, err
	}

	if upd.GetMatchedCount() == 0 {
		// post deleted mid-flight: roll the insert back
		repo.collection.DeleteOne(ctx, bson.M{"_id": comment.ID})
		return nil, ErrNotFound
	}

	return comment, nil
}

// Delete removes a comment and decrements the post's commentCount. Children
// are left in place; the tree builder recovers them as roots. If the counter
// update errors after the row is gone the count stays one too high; the
// error is surfaced so the caller can log it, and a failed match means the
// post itself was deleted, which retires the counter with it.
func (repo *CommentsRepoMongo) Delete(ctx context.Context, postID, id interface{}) (bool, error) {
	res, err := repo.collection.DeleteOne(ctx, bson.M{"_id": id, "postID": postID})
	if err != nil {
		return false, err
	}

	if res.GetDeletedCount() == 0 {
		return false, nil
	}

	_, err = repo.posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"commentCount": -1}})
	if err != nil {
		return false, err
	}

	return true, nil
}

// ApplyVote is the same bounded compare-and-swap as the posts repo runs.
func (repo *CommentsRepoMongo) ApplyVote(ctx context.Context, id interface{}, voter int64, d vote.Direction) (*Comment, vote.State, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		comment, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, vote.StateNone, err
		}

		state, delta := comment.Apply(voter, d)
		comment.Score += delta

		res, err := repo.collection.UpdateOne(ctx,
			bson.M{"_id": id, "version": comment.Version},
			bson.M{
				"$set": bson.M{"score": comment.Score, "upvoters": comment.Upvoters, "downvoters": comment.Downvoters},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, vote.StateNone, err
		}

		if res.GetMatchedCount() > 0 {
			comment.Version++
			return comment, state, nil
		}
	}

	return nil, vote.StateNone, ErrConflict
}

func (repo *CommentsRepoMongo) ScoreByAuthor(ctx context.Context, authorID int64) (int64, error) {
	cur, err := repo.collection.Find(ctx, bson.M{"authorID": authorID})
	if err != nil {
		return 0, err
	}

	defer cur.Close(ctx)

	var comments []*Comment
	err = cur.All(ctx, &comments)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, c := range comments {
		total += int64(c.Score)
	}

	return total, nil
}

func (repo *CommentsRepoMongo) ParseID(in string) (interface{}, error) {
	return primitive.ObjectIDFromHex(in)
}

func (repo *CommentsRepoMongo) checkPostExists(ctx context.Context, postID interface{}) error {
	res := repo.posts.FindOne(ctx, bson.M{"_id": postID})

	post := bson.M{}
	err := res.Decode(&post)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}

	return err
}
