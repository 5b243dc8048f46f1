package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"public-chat/internal/models"
)

// MongoDocumentRepo stores documents in a single MongoDB collection.
type MongoDocumentRepo struct {
	coll *mongo.Collection
}

// NewMongoDocumentRepo constructs a MongoDocumentRepo over db.documents.
func NewMongoDocumentRepo(db *mongo.Database) *MongoDocumentRepo {
	return &MongoDocumentRepo{coll: db.Collection("documents")}
}

type mongoDocument struct {
	Key          string    `bson:"_id"`
	ID           string    `bson:"documentId"`
	DatabaseID   string    `bson:"databaseId"`
	CollectionID string    `bson:"collectionId"`
	Data         bson.M    `bson:"data"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d mongoDocument) model() models.Document {
	return models.Document{
		ID:           d.ID,
		DatabaseID:   d.DatabaseID,
		CollectionID: d.CollectionID,
		Data:         map[string]any(d.Data),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func mongoKey(databaseID, collectionID, documentID string) string {
	return databaseID + "/" + collectionID + "/" + documentID
}

// EnsureIndexes creates the listing index.
func (r *MongoDocumentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "databaseId", Value: 1},
			{Key: "collectionId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})
	return err
}

// CreateDocument inserts a document; the id must be unique in its collection.
func (r *MongoDocumentRepo) CreateDocument(ctx context.Context, doc models.Document) (models.Document, error) {
	created, updated := stamped(doc)
	rec := mongoDocument{
		Key:          mongoKey(doc.DatabaseID, doc.CollectionID, doc.ID),
		ID:           doc.ID,
		DatabaseID:   doc.DatabaseID,
		CollectionID: doc.CollectionID,
		Data:         bson.M(doc.Data),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Document{}, ErrDocumentExists
		}
		return models.Document{}, err
	}
	return rec.model(), nil
}

// GetDocument fetches one document.
func (r *MongoDocumentRepo) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (models.Document, error) {
	var rec mongoDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": mongoKey(databaseID, collectionID, documentID)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return models.Document{}, err
	}
	return rec.model(), nil
}

// ListDocuments returns documents of one collection in the requested order.
func (r *MongoDocumentRepo) ListDocuments(ctx context.Context, databaseID, collectionID string, opts ListOptions) ([]models.Document, error) {
	dir := 1
	if opts.Desc {
		dir = -1
	}
	field := mongoSortField(opts.OrderBy)
	sort := bson.D{{Key: field, Value: dir}}
	if field != "createdAt" {
		sort = append(sort, bson.E{Key: "createdAt", Value: dir})
	}

	cur, err := r.coll.Find(ctx,
		bson.M{"databaseId": databaseID, "collectionId": collectionID},
		options.Find().SetSort(sort).SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []mongoDocument
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, rec.model())
	}
	return docs, nil
}

func mongoSortField(attribute string) string {
	switch attribute {
	case "", "$createdAt":
		return "createdAt"
	case "$updatedAt":
		return "updatedAt"
	case "$id":
		return "documentId"
	default:
		return "data." + attribute
	}
}
