package mongo

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

func ptr(s string) *string { return &s }

func TestUpdateDocument(t *testing.T) {
	got := UpdateDocument(store.UserUpdate{Avatar: ptr("a.png"), ConnID: ptr("c1")})
	if len(got) != 2 || got["avatar"] != "a.png" || got["conn_id"] != "c1" {
		t.Errorf("UpdateDocument = %v", got)
	}
	if _, ok := got["username"]; ok {
		t.Error("unset username present in update")
	}

	if got := UpdateDocument(store.UserUpdate{}); len(got) != 0 {
		t.Errorf("empty update = %v", got)
	}
}

func TestLeaderboardOptions(t *testing.T) {
	sort, ok := LeaderboardOptions().Sort.(bson.D)
	if !ok {
		t.Fatalf("Sort type = %T", LeaderboardOptions().Sort)
	}
	want := bson.D{{Key: "points", Value: -1}, {Key: "username", Value: 1}}
	if len(sort) != len(want) {
		t.Fatalf("sort = %v, want %v", sort, want)
	}
	for i := range want {
		if sort[i].Key != want[i].Key || sort[i].Value != want[i].Value {
			t.Errorf("sort[%d] = %v, want %v", i, sort[i], want[i])
		}
	}
}

func TestUserBSON(t *testing.T) {
	u := model.User{UUID: "u1", Username: "alice", Hash: "h", Points: 7, ConnID: "c1"}
	data, err := bson.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	raw := bson.Raw(data)
	if id := raw.Lookup("_id").StringValue(); id != "u1" {
		t.Errorf("_id = %q, want u1", id)
	}
	if conn := raw.Lookup("conn_id").StringValue(); conn != "c1" {
		t.Errorf("conn_id = %q, want c1", conn)
	}

	var back model.User
	if err := bson.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != u {
		t.Errorf("round trip = %+v, want %+v", back, u)
	}
}

func TestTaskResultsBSON(t *testing.T) {
	task := model.Task{UUID: "t1", Title: "Add Two", Results: []model.Result{{"w", "l"}}}
	data, err := bson.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back model.Task
	if err := bson.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back.Results) != 1 || back.Results[0] != (model.Result{"w", "l"}) {
		t.Errorf("results = %v", back.Results)
	}
}

func TestTranslate(t *testing.T) {
	if !errors.Is(translate(mongo.ErrNoDocuments), store.ErrNotFound) {
		t.Error("ErrNoDocuments should map to ErrNotFound")
	}
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	if !errors.Is(translate(dup), store.ErrAlreadyExists) {
		t.Error("duplicate key should map to ErrAlreadyExists")
	}
	if translate(nil) != nil {
		t.Error("nil should stay nil")
	}
}
