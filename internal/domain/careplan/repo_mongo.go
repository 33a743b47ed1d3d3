package careplan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const carePlanCollection = "care_plans"

type mongoRepo struct {
	coll *mongo.Collection
}

// NewMongoRepo returns a Repository storing each care plan as one document.
// Nested updates use positional array filters so they stay single-document
// atomic.
func NewMongoRepo(database *mongo.Database) Repository {
	return &mongoRepo{coll: database.Collection(carePlanCollection)}
}

// EnsureCarePlanIndexes creates the index backing the active-plan lookup.
func EnsureCarePlanIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(carePlanCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patient_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("patient_latest"),
	})
	if err != nil {
		return fmt.Errorf("create care plan index: %w", err)
	}
	return nil
}

func (r *mongoRepo) Create(ctx context.Context, cp *CarePlan) error {
	if _, err := r.coll.InsertOne(ctx, cp); err != nil {
		return fmt.Errorf("insert care plan: %w", err)
	}
	return nil
}

func (r *mongoRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*CarePlan, error) {
	var cp CarePlan
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&cp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find care plan: %w", err)
	}
	cp.Normalize()
	return &cp, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*CarePlan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepo) GetActiveByPatient(ctx context.Context, patientID string) (*CarePlan, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findOne(ctx, bson.M{"patient_id": patientID}, opts)
}

func (r *mongoRepo) update(ctx context.Context, filter, update bson.M, arrayFilters ...interface{}) error {
	opts := options.Update()
	if len(arrayFilters) > 0 {
		opts.SetArrayFilters(options.ArrayFilters{Filters: arrayFilters})
	}
	res, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("update care plan: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepo) UpdateScheduleEntry(ctx context.Context, carePlanID, medicationID, timeLabel string, taken bool) error {
	filter := bson.M{
		"_id": carePlanID,
		"medications": bson.M{"$elemMatch": bson.M{
			"id":            medicationID,
			"schedule.time": timeLabel,
		}},
	}
	update := bson.M{"$set": bson.M{"medications.$[m].schedule.$[s].taken": taken}}
	return r.update(ctx, filter, update,
		bson.M{"m.id": medicationID},
		bson.M{"s.time": timeLabel},
	)
}

func (r *mongoRepo) UpdateAppointmentStatus(ctx context.Context, carePlanID, appointmentID, status string, slot *time.Time) error {
	set := bson.M{"appointments.$[a].status": status}
	if slot != nil {
		set["appointments.$[a].proposed_slot"] = *slot
	}
	filter := bson.M{"_id": carePlanID, "appointments.id": appointmentID}
	return r.update(ctx, filter, bson.M{"$set": set}, bson.M{"a.id": appointmentID})
}

func (r *mongoRepo) SetProposedSlot(ctx context.Context, carePlanID, appointmentID string, slot time.Time) error {
	filter := bson.M{"_id": carePlanID, "appointments.id": appointmentID}
	update := bson.M{"$set": bson.M{"appointments.$[a].proposed_slot": slot}}
	return r.update(ctx, filter, update, bson.M{"a.id": appointmentID})
}

func (r *mongoRepo) UpdateReminderTime(ctx context.Context, carePlanID, label, hhmm string) error {
	update := bson.M{"$set": bson.M{"reminder_slots." + label + ".time": hhmm}}
	return r.update(ctx, bson.M{"_id": carePlanID}, update)
}

func (r *mongoRepo) ProposedSlots(ctx context.Context) ([]time.Time, error) {
	opts := options.Find().SetProjection(bson.M{"appointments.proposed_slot": 1})
	cur, err := r.coll.Find(ctx, bson.M{"appointments.proposed_slot": bson.M{"$ne": nil}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find proposed slots: %w", err)
	}
	defer cur.Close(ctx)

	var out []time.Time
	for cur.Next(ctx) {
		var doc struct {
			Appointments []struct {
				ProposedSlot *time.Time `bson:"proposed_slot"`
			} `bson:"appointments"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode proposed slots: %w", err)
		}
		for _, a := range doc.Appointments {
			if a.ProposedSlot != nil {
				out = append(out, *a.ProposedSlot)
			}
		}
	}
	return out, cur.Err()
}
