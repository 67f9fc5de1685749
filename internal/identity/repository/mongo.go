package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/platform/autherr"
)

// IdentitiesCollection is the Mongo collection holding identities.
const IdentitiesCollection = "identities"

type identityDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	IsVerified   bool      `bson:"isVerified"`
	IsActive     bool      `bson:"isActive"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// MongoRepository stores identities in a document collection keyed by email.
type MongoRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewMongoRepository returns a repository over db's identities collection.
// Call EnsureIndexes once at startup.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db, coll: db.Collection(IdentitiesCollection)}
}

// EnsureIndexes creates the unique email index if it does not exist.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("identities_email_key"),
	})
	return err
}

// GetByID returns the identity for id, or nil if not found.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByEmail returns the identity for email, or nil if not found.
func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: domain.NormalizeEmail(email)}})
}

// Create inserts i. A duplicate email is reported as autherr.Conflict.
func (r *MongoRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.coll.InsertOne(ctx, identityDoc{
		ID:           i.ID,
		Email:        domain.NormalizeEmail(i.Email),
		PasswordHash: i.PasswordHash,
		Role:         string(i.Role),
		IsVerified:   i.IsVerified,
		IsActive:     i.IsActive,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return autherr.Wrap(autherr.Conflict, "identity.create", err)
	}
	return err
}

// UpdatePasswordHash replaces the password hash for id.
func (r *MongoRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	return r.set(ctx, "identity.update_password", id, "passwordHash", passwordHash)
}

// SetVerified sets isVerified for id.
func (r *MongoRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.set(ctx, "identity.set_verified", id, "isVerified", verified)
}

// SetActive sets isActive for id.
func (r *MongoRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, "identity.set_active", id, "isActive", active)
}

// Ping checks the server connection.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*domain.Identity, error) {
	var doc identityDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Identity{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         domain.Role(doc.Role),
		IsVerified:   doc.IsVerified,
		IsActive:     doc.IsActive,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (r *MongoRepository) set(ctx context.Context, op, id, field string, value any) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: field, Value: value},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return autherr.New(autherr.NotFound, op)
	}
	return nil
}
