package posts

import (
	"context"

	"asperitas/pkg/common"
	"asperitas/pkg/vote"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// casAttempts bounds optimistic retries on a contended document before the
// operation reports ErrConflict.
const casAttempts = 5

type PostsRepoMongo struct {
	collection common.CollectionHelper
}

func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	return mongo.Connect(ctx, options.Client().ApplyURI(uri))
}

func NewPostsRepoMongo(db *mongo.Database) *PostsRepoMongo {
	return &PostsRepoMongo{collection: &common.MongoCollection{Collection: db.Collection("posts")}}
}

func (r *PostsRepoMongo) GetAll(ctx context.Context) ([]*Post, error) {
	return r.getByField(ctx, bson.M{})
}

func (r *PostsRepoMongo) GetByCommunity(ctx context.Context, community string) ([]*Post, error) {
	return r.getByField(ctx, bson.M{"community": community})
}

func (r *PostsRepoMongo) GetByAuthorID(ctx context.Context, authorID int64) ([]*Post, error) {
	return r.getByField(ctx, bson.M{"authorID": authorID})
}

// GetByID also counts the view.
func (r *PostsRepoMongo) GetByID(ctx context.Context, id interface{}) (*Post, error) {
	res := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}},
		})

	post := &Post{}
	err := res.Decode(post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	post.Views++
	return post, nil
}

// Lookup fetches a post without counting a view. Only a reader opening the
// post detail page moves the counter; internal lookups go through here.
func (r *PostsRepoMongo) Lookup(ctx context.Context, id interface{}) (*Post, error) {
	return r.findOne(ctx, id)
}

func (r *PostsRepoMongo) Add(ctx context.Context, p *Post) (interface{}, error) {
	res, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return nil, err
	}

	return res.GetInsertedID(), nil
}

func (r *PostsRepoMongo) Delete(ctx context.Context, id interface{}) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}

	if res.GetDeletedCount() == 0 {
		return false, nil
	}

	return true, nil
}

// ApplyVote runs one vote state-machine transition for voter against the
// post, as a compare-and-swap on the document version. Returns the updated
// post and the voter's new state, ErrNotFound for a missing post,
// ErrConflict when retries run out.
func (r *PostsRepoMongo) ApplyVote(ctx context.Context, id interface{}, voter int64, d vote.Direction) (*Post, vote.State, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		post, err := r.findOne(ctx, id)
		if err != nil {
			return nil, vote.StateNone, err
		}

		state, delta := post.Apply(voter, d)
		post.Score += delta

		res, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": id, "version": post.Version},
			bson.M{
				"$set": bson.M{"score": post.Score, "upvoters": post.Upvoters, "downvoters": post.Downvoters},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, vote.StateNone, err
		}

		if res.GetMatchedCount() > 0 {
			post.Version++
			return post, state, nil
		}
		// lost the race, reload and retry
	}

	return nil, vote.StateNone, ErrConflict
}

// ScoreByAuthor sums the author's post scores; karma is derived at read
// time, never maintained incrementally.
func (r *PostsRepoMongo) ScoreByAuthor(ctx context.Context, authorID int64) (int64, error) {
	posts, err := r.GetByAuthorID(ctx, authorID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, p := range posts {
		total += int64(p.Score)
	}

	return total, nil
}

func (r *PostsRepoMongo) ParseID(in string) (interface{}, error) {
	return primitive.ObjectIDFromHex(in)
}

func (r *PostsRepoMongo) findOne(ctx context.Context, id interface{}) (*Post, error) {
	res := r.collection.FindOne(ctx, bson.M{"_id": id})
	post := &Post{}
	err := res.Decode(post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (r *PostsRepoMongo) getByField(ctx context.Context, filter bson.M) ([]*Post, error) {
	cur, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	defer cur.Close(ctx)

	var posts []*Post
	err = cur.All(ctx, &posts)
	if err != nil {
		return nil, err
	}

	return posts, nil
}
