package communities

import (
	"context"

	"asperitas/pkg/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const casAttempts = 5

type CommunitiesRepoMongo struct {
	collection common.CollectionHelper
}

func NewCommunitiesRepoMongo(db *mongo.Database) *CommunitiesRepoMongo {
	return &CommunitiesRepoMongo{collection: &common.MongoCollection{Collection: db.Collection("communities")}}
}

func (r *CommunitiesRepoMongo) GetAll(ctx context.Context) ([]*Community, error) {
	cur, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	defer cur.Close(ctx)

	var communities []*Community
	err = cur.All(ctx, &communities)
	if err != nil {
		return nil, err
	}

	return communities, nil
}

func (r *CommunitiesRepoMongo) GetByName(ctx context.Context, name string) (*Community, error) {
	res := r.collection.FindOne(ctx, bson.M{"name": CanonicalName(name)})

	c := &Community{}
	err := res.Decode(c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (r *CommunitiesRepoMongo) Add(ctx context.Context, c *Community) (interface{}, error) {
	_, err := r.GetByName(ctx, c.Name)
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if err != ErrNotFound {
		return nil, err
	}

	res, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		return nil, err
	}

	return res.GetInsertedID(), nil
}

// Join adds the identity to the member set. Joining twice is a no-op that
// returns the current state; the count can never double-increment because it
// is recomputed from the set inside the same compare-and-swap write.
func (r *CommunitiesRepoMongo) Join(ctx context.Context, name string, memberID int64) (*Community, error) {
	return r.updateMembers(ctx, name, func(c *Community) bool {
		if c.IsMember(memberID) {
			return false
		}
		c.Members = append(c.Members, memberID)
		return true
	})
}

// Leave removes the identity from the member set. Leaving a community the
// identity never joined is a no-op; the count cannot go negative.
func (r *CommunitiesRepoMongo) Leave(ctx context.Context, name string, memberID int64) (*Community, error) {
	return r.updateMembers(ctx, name, func(c *Community) bool {
		for i, m := range c.Members {
			if m == memberID {
				c.Members = append(c.Members[:i], c.Members[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (r *CommunitiesRepoMongo) updateMembers(ctx context.Context, name string, mutate func(*Community) bool) (*Community, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		c, err := r.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}

		if !mutate(c) {
			return c, nil
		}
		c.MemberCount = int64(len(c.Members))

		res, err := r.collection.UpdateOne(ctx,
			bson.M{"name": c.Name, "version": c.Version},
			bson.M{
				"$set": bson.M{"members": c.Members, "memberCount": c.MemberCount},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, err
		}

		if res.GetMatchedCount() > 0 {
			c.Version++
			return c, nil
		}
	}

	return nil, ErrConflict
}
