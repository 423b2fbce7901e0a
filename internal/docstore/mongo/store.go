package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rounds-service/internal/docstore"
	"rounds-service/internal/domain"
)

// Store implements docstore.Store on MongoDB. Document ids map to _id and
// merge writes become $set updates, which gives the same shallow
// last-write-wins field semantics as the contract requires.
type Store struct {
	db *mongo.Database
}

func NewStore(client *mongo.Client, database string) *Store {
	return &Store{db: client.Database(database)}
}

// Connect dials and pings the server.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	delete(doc, "_id")
	return docstore.Document(doc), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Document, merge bool) error {
	coll := s.db.Collection(collection)
	if merge {
		update := bson.M{"$set": bson.M(data)}
		opts := options.Update().SetUpsert(true)
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts); err != nil {
			return fmt.Errorf("merge %s/%s: %w", collection, id, err)
		}
		return nil
	}
	replacement := bson.M(data)
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, replacement, opts); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]docstore.Record, error) {
	return s.find(ctx, collection, bson.M{field: value})
}

func (s *Store) ListAll(ctx context.Context, collection string) ([]docstore.Record, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *Store) find(ctx context.Context, collection string, filter bson.M) ([]docstore.Record, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	records := make([]docstore.Record, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc["_id"].(string)
		delete(doc, "_id")
		records = append(records, docstore.Record{ID: id, Data: docstore.Document(doc)})
	}
	return records, nil
}

func (s *Store) BatchWrite(ctx context.Context, writes []docstore.Write) error {
	// Mongo bulk writes are per collection; group first.
	grouped := make(map[string][]mongo.WriteModel)
	for _, w := range writes {
		var model mongo.WriteModel
		if w.Merge {
			model = mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": w.ID}).
				SetUpdate(bson.M{"$set": bson.M(w.Data)}).
				SetUpsert(true)
		} else {
			model = mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": w.ID}).
				SetReplacement(bson.M(w.Data)).
				SetUpsert(true)
		}
		grouped[w.Collection] = append(grouped[w.Collection], model)
	}
	for collection, models := range grouped {
		if _, err := s.db.Collection(collection).BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("batch write %s: %w", collection, err)
		}
	}
	return nil
}
