// Package mongo is a store backend on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// Collection names.
const (
	UsersCollection = "users"
	TasksCollection = "tasks"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string
	Logger   *slog.Logger
}

// Store is a store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	tasks  *mongo.Collection
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials the server, verifies it with a ping and ensures indexes.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client: client,
		users:  db.Collection(UsersCollection),
		tasks:  db.Collection(TasksCollection),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongo store connected", "database", cfg.Database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "conn_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.users.InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) User(ctx context.Context, uuid string) (model.User, error) {
	return s.findUser(ctx, bson.M{"_id": uuid})
}

func (s *Store) UserByName(ctx context.Context, username string) (model.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) UserByConn(ctx context.Context, connID string) (model.User, error) {
	if connID == "" {
		return model.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"conn_id": connID})
}

func (s *Store) UpdateUser(ctx context.Context, uuid string, upd store.UserUpdate) (model.User, error) {
	set := UpdateDocument(upd)
	if len(set) == 0 {
		return s.User(ctx, uuid)
	}
	return s.updateUser(ctx, uuid, bson.M{"$set": set})
}

func (s *Store) AddPoints(ctx context.Context, uuid string, delta int) (model.User, error) {
	return s.updateUser(ctx, uuid, bson.M{"$inc": bson.M{"points": delta}})
}

func (s *Store) Leaderboard(ctx context.Context) ([]model.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, LeaderboardOptions())
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	if t.Results == nil {
		// $push needs an array, not null.
		t.Results = []model.Result{}
	}
	_, err := s.tasks.InsertOne(ctx, t)
	return translate(err)
}

func (s *Store) Task(ctx context.Context, uuid string) (model.Task, error) {
	var t model.Task
	if err := s.tasks.FindOne(ctx, bson.M{"_id": uuid}).Decode(&t); err != nil {
		return model.Task{}, translate(err)
	}
	return t, nil
}

func (s *Store) Tasks(ctx context.Context) ([]model.Task, error) {
	cur, err := s.tasks.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	var tasks []model.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) AppendResult(ctx context.Context, taskUUID string, r model.Result) error {
	res, err := s.tasks.UpdateOne(ctx,
		bson.M{"_id": taskUUID},
		bson.M{"$push": bson.M{"results": r}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) updateUser(ctx context.Context, uuid string, update bson.M) (model.User, error) {
	var u model.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": uuid},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

// UpdateDocument returns the $set document for the set fields of upd.
func UpdateDocument(upd store.UserUpdate) bson.M {
	set := bson.M{}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.ConnID != nil {
		set["conn_id"] = *upd.ConnID
	}
	return set
}

// LeaderboardOptions orders users by points descending, then username.
func LeaderboardOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{
		{Key: "points", Value: -1},
		{Key: "username", Value: 1},
	})
}

// translate maps driver errors to store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrAlreadyExists
	}
	return err
}
