// Package mongostore is the MongoDB implementation of core.DocumentStore.
// Collection paths such as "subjects/<id>/<classCode>" map to collections named "subjects.<id>.<classCode>".
package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/classrecord/core"
)

const idField = "_id"

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ core.DocumentStore = (*Store)(nil) // interface compliance check

// Open connects to the configured MongoDB deployment and waits for it to answer.
func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Store.MongoURI).SetAppName(conf.AppName))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return &Store{client: client, db: client.Database(conf.Store.MongoDatabase)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(path string) *mongo.Collection {
	return s.db.Collection(strings.ReplaceAll(path, "/", "."))
}

func (s *Store) Get(ctx context.Context, coll, id string) (core.Document, error) {
	var raw bson.M
	if err := s.collection(coll).FindOne(ctx, bson.M{idField: id}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Document{}, core.ErrDocumentNotFound
		}
		return core.Document{}, core.NewTransportError("get", err)
	}
	return toDocument(raw), nil
}

func (s *Store) Query(ctx context.Context, coll, field string, value interface{}) ([]core.Document, error) {
	return s.find(ctx, coll, bson.M{field: value}, "query")
}

func (s *Store) List(ctx context.Context, coll string) ([]core.Document, error) {
	return s.find(ctx, coll, bson.M{}, "list")
}

func (s *Store) find(ctx context.Context, coll string, filter bson.M, op string) ([]core.Document, error) {
	cur, err := s.collection(coll).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: idField, Value: 1}}))
	if err != nil {
		return nil, core.NewTransportError(op, err)
	}
	var results []bson.M
	if err = cur.All(ctx, &results); err != nil {
		return nil, core.NewTransportError(op, err)
	}
	docs := make([]core.Document, 0, len(results))
	for _, raw := range results {
		docs = append(docs, toDocument(raw))
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, data core.Data) error {
	doc := bson.M(data.Copy())
	doc[idField] = id
	_, err := s.collection(coll).ReplaceOne(ctx, bson.M{idField: id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return core.NewTransportError("set", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, fields core.Data) error {
	res, err := s.collection(coll).UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return core.NewTransportError("update", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) Add(ctx context.Context, coll string, data core.Data) (string, error) {
	id := uuid.New().String()
	doc := bson.M(data.Copy())
	doc[idField] = id
	if _, err := s.collection(coll).InsertOne(ctx, doc); err != nil {
		return "", core.NewTransportError("add", err)
	}
	return id, nil
}

func toDocument(raw bson.M) core.Document {
	id, _ := raw[idField].(string)
	data := make(core.Data, len(raw))
	for k, v := range raw {
		if k != idField {
			data[k] = normalize(v)
		}
	}
	return core.Document{ID: id, Data: data}
}

// normalize turns driver types into plain Go values: maps, slices, time.Time and []byte.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		m := make(map[string]interface{}, len(val))
		for k, e := range val {
			m[k] = normalize(e)
		}
		return m
	case bson.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		s := make([]interface{}, len(val))
		for i, e := range val {
			s[i] = normalize(e)
		}
		return s
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Binary:
		return val.Data
	case primitive.ObjectID:
		return val.Hex()
	}
	return v
}
