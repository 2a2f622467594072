package comments

import (
	"context"
	"testing"

	"asperitas/pkg/common"
	"asperitas/pkg/vote"

	"github.com/golang/mock/gomock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decodeComment(c *Comment) func(interface{}) error {
	return func(v interface{}) error {
		*v.(*Comment) = *c
		return nil
	}
}

func singleResult(ctrl *gomock.Controller, decode func(interface{}) error) *common.MockSingleResultHelper {
	res := common.NewMockSingleResultHelper(ctrl)
	res.EXPECT().Decode(gomock.Any()).DoAndReturn(decode)
	return res
}

func matchedResult(ctrl *gomock.Controller, matched int64) *common.MockUpdateResultHelper {
	res := common.NewMockUpdateResultHelper(ctrl)
	res.EXPECT().GetMatchedCount().Return(matched).AnyTimes()
	res.EXPECT().GetModifiedCount().Return(matched).AnyTimes()
	return res
}

func existsResult(ctrl *gomock.Controller) *common.MockSingleResultHelper {
	return singleResult(ctrl, func(v interface{}) error {
		*v.(*bson.M) = bson.M{"_id": "whatever"}
		return nil
	})
}

func TestRecordComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	commentID := primitive.NewObjectID()

	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		Return(existsResult(ctrl))

	insertRes := common.NewMockInsertOneResultHelper(ctrl)
	insertRes.EXPECT().GetInsertedID().Return(commentID)
	collection.EXPECT().
		InsertOne(gomock.Any(), gomock.AssignableToTypeOf(&Comment{})).
		Return(insertRes, nil)

	postsCollection.EXPECT().
		UpdateOne(gomock.Any(), bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentCount": 1}}).
		Return(matchedResult(ctrl, 1), nil)

	comment, err := repo.Record(context.Background(), postID, nil, int64(1), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comment.ID != commentID {
		t.Errorf("wrong id, expected %v but was %v", commentID, comment.ID)
	}
	if comment.Score != 1 || comment.State(int64(1)) != vote.StateUp {
		t.Errorf("new comment must start at score 1 with the author's upvote")
	}
}

func TestRecordCommentPostGone(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	commentID := primitive.NewObjectID()

	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		Return(existsResult(ctrl))

	insertRes := common.NewMockInsertOneResultHelper(ctrl)
	insertRes.EXPECT().GetInsertedID().Return(commentID)
	collection.EXPECT().
		InsertOne(gomock.Any(), gomock.AssignableToTypeOf(&Comment{})).
		Return(insertRes, nil)

	// the post vanished before the counter update: the insert is rolled back.
	// The delete must filter on the ObjectID the insert stored, not on a
	// stringified form of it, or the rollback silently matches nothing.
	postsCollection.EXPECT().
		UpdateOne(gomock.Any(), bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentCount": 1}}).
		Return(matchedResult(ctrl, 0), nil)

	deleted := common.NewMockDeleteResultHelper(ctrl)
	deleted.EXPECT().GetDeletedCount().Return(int64(1)).AnyTimes()
	collection.EXPECT().
		DeleteOne(gomock.Any(), bson.M{"_id": commentID}).
		Return(deleted, nil)

	_, err := repo.Record(context.Background(), postID, nil, int64(1), "hello")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// One top-level comment and two replies move the post counter by one each,
// ending at three.
func TestCommentCountAccrues(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		DoAndReturn(func(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) common.SingleResultHelper {
			return existsResult(ctrl)
		}).
		Times(3)

	for _, id := range ids {
		insertRes := common.NewMockInsertOneResultHelper(ctrl)
		insertRes.EXPECT().GetInsertedID().Return(id)
		collection.EXPECT().
			InsertOne(gomock.Any(), gomock.AssignableToTypeOf(&Comment{})).
			Return(insertRes, nil)
	}

	root := &Comment{ID: ids[0], PostID: postID}
	collection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": ids[0]}).
		DoAndReturn(func(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) common.SingleResultHelper {
			return singleResult(ctrl, decodeComment(root))
		}).
		Times(2)

	var commentCount int
	postsCollection.EXPECT().
		UpdateOne(gomock.Any(), bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentCount": 1}}).
		DoAndReturn(func(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (common.UpdateResultHelper, error) {
			commentCount++
			return matchedResult(ctrl, 1), nil
		}).
		Times(3)

	top, err := repo.Record(context.Background(), postID, nil, int64(1), "top level")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Record(context.Background(), postID, top.ID, int64(2), "first reply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Record(context.Background(), postID, top.ID, int64(3), "second reply"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if commentCount != 3 {
		t.Errorf("expected a count of 3 after three comments, got %d", commentCount)
	}
}

func TestRecordCommentMissingPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		Return(singleResult(ctrl, func(interface{}) error { return mongo.ErrNoDocuments }))

	_, err := repo.Record(context.Background(), postID, nil, int64(1), "hello")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordCommentCrossPostParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	otherPostID := primitive.NewObjectID()
	parentID := primitive.NewObjectID()

	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		Return(existsResult(ctrl))

	parent := &Comment{ID: parentID, PostID: otherPostID}
	collection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": parentID}).
		Return(singleResult(ctrl, decodeComment(parent)))

	_, err := repo.Record(context.Background(), postID, parentID, int64(1), "hello")
	if err != ErrCrossPostParent {
		t.Fatalf("expected ErrCrossPostParent, got %v", err)
	}
}

func TestRecordCommentMissingParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	parentID := primitive.NewObjectID()

	postsCollection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": postID}).
		Return(existsResult(ctrl))
	collection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": parentID}).
		Return(singleResult(ctrl, func(interface{}) error { return mongo.ErrNoDocuments }))

	_, err := repo.Record(context.Background(), postID, parentID, int64(1), "hello")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	commentID := primitive.NewObjectID()

	deleted := common.NewMockDeleteResultHelper(ctrl)
	deleted.EXPECT().GetDeletedCount().Return(int64(1))
	collection.EXPECT().
		DeleteOne(gomock.Any(), bson.M{"_id": commentID, "postID": postID}).
		Return(deleted, nil)

	postsCollection.EXPECT().
		UpdateOne(gomock.Any(), bson.M{"_id": postID}, bson.M{"$inc": bson.M{"commentCount": -1}}).
		Return(matchedResult(ctrl, 1), nil)

	ok, err := repo.Delete(context.Background(), postID, commentID)
	if err != nil || !ok {
		t.Fatalf("expected successful delete, got ok=%v err=%v", ok, err)
	}
}

func TestDeleteCommentMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	postsCollection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection, posts: postsCollection}

	postID := primitive.NewObjectID()
	commentID := primitive.NewObjectID()

	missing := common.NewMockDeleteResultHelper(ctrl)
	missing.EXPECT().GetDeletedCount().Return(int64(0))
	collection.EXPECT().
		DeleteOne(gomock.Any(), bson.M{"_id": commentID, "postID": postID}).
		Return(missing, nil)

	// no counter update when nothing was removed
	ok, err := repo.Delete(context.Background(), postID, commentID)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestCommentApplyVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection}

	id := primitive.NewObjectID()
	stored := NewComment("post1", nil, int64(1), "hello")
	stored.ID = id

	collection.EXPECT().
		FindOne(gomock.Any(), bson.M{"_id": id}).
		Return(singleResult(ctrl, decodeComment(stored)))
	collection.EXPECT().
		UpdateOne(gomock.Any(), bson.M{"_id": id, "version": int64(0)}, gomock.Any()).
		Return(matchedResult(ctrl, 1), nil)

	comment, state, err := repo.ApplyVote(context.Background(), id, int64(2), vote.Down)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != vote.StateDown {
		t.Errorf("wrong state, expected down but was %v", state)
	}
	if comment.Score != 0 {
		t.Errorf("wrong score, expected 0 but was %v", comment.Score)
	}
}

func TestCommentScoreByAuthor(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection}

	authored := []*Comment{
		{Score: 1, AuthorID: 7},
		{Score: 4, AuthorID: 7},
	}

	cursor := common.NewMockCursorHelper(ctrl)
	cursor.EXPECT().All(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, results interface{}) error {
		*results.(*[]*Comment) = authored
		return nil
	})
	cursor.EXPECT().Close(gomock.Any()).Return(nil)
	collection.EXPECT().Find(gomock.Any(), bson.M{"authorID": int64(7)}).Return(cursor, nil)

	total, err := repo.ScoreByAuthor(context.Background(), int64(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("wrong total, expected 5 but was %v", total)
	}
}

func TestTreeFromStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	collection := common.NewMockCollectionHelper(ctrl)
	repo := &CommentsRepoMongo{collection: collection}

	postID := primitive.NewObjectID()
	flat := []*Comment{
		{ID: "a", PostID: postID},
		{ID: "b", PostID: postID, ParentID: "a"},
	}

	cursor := common.NewMockCursorHelper(ctrl)
	cursor.EXPECT().All(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, results interface{}) error {
		*results.(*[]*Comment) = flat
		return nil
	})
	cursor.EXPECT().Close(gomock.Any()).Return(nil)
	collection.EXPECT().Find(gomock.Any(), bson.M{"postID": postID}).Return(cursor, nil)

	forest, err := repo.Tree(context.Background(), postID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forest) != 1 || len(forest[0].Children) != 1 {
		t.Fatalf("wrong forest shape: %v roots", len(forest))
	}
}
