package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type kvDocument struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores the local cache in a MongoDB collection, one document per
// namespace/key pair. Used when several instances share one cache.
type Mongo struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	m := &Mongo{
		Client:     client,
		Collection: client.Database(database).Collection("kv"),
	}

	if err := m.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) createIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "namespace", Value: 1}},
	})
	return err
}

func (m *Mongo) Namespace(ns string) KV {
	return &mongoKV{coll: m.Collection, ns: ns}
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

type mongoKV struct {
	coll *mongo.Collection
	ns   string
}

func (kv *mongoKV) id(key string) string {
	return kv.ns + "/" + key
}

func (kv *mongoKV) Get(ctx context.Context, key string, v any) (bool, error) {
	var doc kvDocument
	err := kv.coll.FindOne(ctx, bson.M{"_id": kv.id(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(doc.Value), v); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *mongoKV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	opts := options.UpdateOne().SetUpsert(true)
	filter := bson.M{"_id": kv.id(key)}
	update := bson.M{"$set": bson.M{
		"namespace":  kv.ns,
		"key":        key,
		"value":      string(raw),
		"updated_at": time.Now(),
	}}
	_, err = kv.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (kv *mongoKV) Remove(ctx context.Context, key string) error {
	_, err := kv.coll.DeleteOne(ctx, bson.M{"_id": kv.id(key)})
	return err
}

func (kv *mongoKV) Clear(ctx context.Context) error {
	_, err := kv.coll.DeleteMany(ctx, bson.M{"namespace": kv.ns})
	return err
}
