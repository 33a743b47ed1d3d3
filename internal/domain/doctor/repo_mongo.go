package doctor

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const availabilityCollection = "doctor_availability"

type mongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(database *mongo.Database) Repository {
	return &mongoRepo{coll: database.Collection(availabilityCollection)}
}

// EnsureDoctorIndexes makes doctor_id unique.
func EnsureDoctorIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(availabilityCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "doctor_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("doctor_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("create doctor index: %w", err)
	}
	return nil
}

func (r *mongoRepo) Create(ctx context.Context, a *Availability) error {
	_, err := r.coll.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert doctor availability: %w", err)
	}
	return nil
}

func (r *mongoRepo) GetByDoctorID(ctx context.Context, doctorID string) (*Availability, error) {
	var a Availability
	err := r.coll.FindOne(ctx, bson.M{"doctor_id": doctorID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find doctor availability: %w", err)
	}
	return &a, nil
}

func (r *mongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Availability, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	var out []*Availability
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode doctors: %w", err)
	}
	return out, nil
}

func (r *mongoRepo) List(ctx context.Context, limit, offset int) ([]*Availability, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	items, err := r.find(ctx, bson.M{}, opts)
	return items, int(total), err
}

func (r *mongoRepo) FindBySpecialty(ctx context.Context, specialty string) ([]*Availability, error) {
	filter := bson.M{"specialty": primitive.Regex{Pattern: regexp.QuoteMeta(specialty), Options: "i"}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}
