package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

const idField = "id"

// Repository stores every collection as a MongoDB collection of the same
// name. Rows keep their own "id" field; Mongo's _id is never exposed.
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository connects to MongoDB and verifies the connection.
func NewRepository(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := newRepository(client.Database(cfg.DBName), logger)
	repo.client = client
	return repo, nil
}

func newRepository(db *mongo.Database, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

// EnsureIndexes creates the unique indexes the store contract relies on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	for _, name := range store.Collections {
		_, err := r.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: idField, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create id index on %s: %w", name, err)
		}
	}

	_, err := r.db.Collection(store.CollectionConfigs).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "barber_id", Value: 1}, {Key: "service_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create config key index: %w", err)
	}
	return nil
}

func (r *Repository) collection(name string) (*mongo.Collection, error) {
	if err := store.ValidateCollection(name); err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

// List implements store.Store.
func (r *Repository) List(ctx context.Context, collection string, opts store.ListOptions) ([]store.Row, error) {
	coll, err := r.collection(collection)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find().SetProjection(bson.M{"_id": 0})
	if opts.SortBy != "" {
		findOpts.SetSort(bson.D{{Key: opts.SortBy, Value: 1}})
	}

	cursor, err := coll.Find(ctx, toFilter(opts.Filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	rows := make([]store.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, store.Row(doc))
	}
	return rows, nil
}

// Get implements store.Store.
func (r *Repository) Get(ctx context.Context, collection, id string) (store.Row, error) {
	coll, err := r.collection(collection)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = coll.FindOne(ctx, bson.M{idField: id}, options.FindOne().SetProjection(bson.M{"_id": 0})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return store.Row(doc), nil
}

// Create implements store.Store.
func (r *Repository) Create(ctx context.Context, collection string, row store.Row) (store.Row, error) {
	coll, err := r.collection(collection)
	if err != nil {
		return nil, err
	}

	created := row.Clone()
	if created.ID() == "" {
		created[idField] = uuid.NewString()
	}

	if _, err := coll.InsertOne(ctx, bson.M(created.Clone())); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s/%s: duplicate id", collection, created.ID())
		}
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return created, nil
}

// Update implements store.Store.
func (r *Repository) Update(ctx context.Context, collection, id string, patch store.Row) error {
	coll, err := r.collection(collection)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": setDoc(patch)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

// Upsert implements store.Store with a single atomic update.
func (r *Repository) Upsert(ctx context.Context, collection string, keyFields []string, row store.Row) error {
	coll, err := r.collection(collection)
	if err != nil {
		return err
	}
	filter, err := store.KeyFilter(keyFields, row)
	if err != nil {
		return err
	}

	id := row.ID()
	if id == "" {
		id = uuid.NewString()
	}
	set := setDoc(row)
	for _, k := range keyFields {
		delete(set, k)
	}

	update := bson.M{"$setOnInsert": bson.M{idField: id}}
	if len(set) > 0 {
		update["$set"] = set
	}
	if _, err := coll.UpdateOne(ctx, toFilter(filter), update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Delete implements store.Store.
func (r *Repository) Delete(ctx context.Context, collection string, sel store.Selector) error {
	coll, err := r.collection(collection)
	if err != nil {
		return err
	}
	if sel.Empty() {
		return errors.New("delete requires ids or a filter")
	}

	filter := toFilter(sel.Filter)
	if len(sel.IDs) > 0 {
		filter = bson.M{idField: bson.M{"$in": sel.IDs}}
	}

	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	r.logger.Debug("rows deleted", zap.String("collection", collection), zap.Int64("count", res.DeletedCount))
	return nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

func toFilter(f store.Filter) bson.M {
	out := bson.M{}
	for k, v := range f {
		out[k] = v
	}
	return out
}

// setDoc drops the identifier fields from a patch.
func setDoc(patch store.Row) bson.M {
	out := bson.M{}
	for k, v := range patch {
		if k == idField || k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}
