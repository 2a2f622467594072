package common

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// The id handed back after an insert must stay usable as a filter value
// against the same collection. Stringifying it would make every follow-up
// match nothing.
func TestInsertedIDKeepsDriverType(t *testing.T) {
	id := primitive.NewObjectID()
	res := &MongoInsertOneResult{res: &mongo.InsertOneResult{InsertedID: id}}

	got := res.GetInsertedID()
	if got != id {
		t.Errorf("inserted id no longer matches the stored _id: %v (%T)", got, got)
	}
}
