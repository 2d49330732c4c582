package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventhub/internal/domain"
)

type eventDocument struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description"`
	ScheduledAt   time.Time `bson:"scheduled_at"`
	Image         string    `bson:"image"`
	Category      string    `bson:"category"`
	OrganiserID   string    `bson:"organiser_id"`
	Attendees     []string  `bson:"attendees"`
	AttendeeCount int       `bson:"attendee_count"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toEventDocument(e *domain.Event) eventDocument {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return eventDocument{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		ScheduledAt:   e.ScheduledAt,
		Image:         e.Image,
		Category:      e.Category,
		OrganiserID:   e.OrganiserID,
		Attendees:     attendees,
		AttendeeCount: len(attendees),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (d eventDocument) toDomain() *domain.Event {
	attendees := d.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return &domain.Event{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		ScheduledAt:   d.ScheduledAt.UTC(),
		Image:         d.Image,
		Category:      d.Category,
		OrganiserID:   d.OrganiserID,
		Attendees:     attendees,
		AttendeeCount: d.AttendeeCount,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type eventRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewEventRepository(db *mongo.Database) domain.EventRepository {
	return &eventRepository{coll: db.Collection(eventsCollection), now: time.Now}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	doc := toEventDocument(e)
	doc.ID = uuid.NewString()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	e.ID = doc.ID
	e.Attendees = doc.Attendees
	e.AttendeeCount = doc.AttendeeCount
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var doc eventDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFoundOr(err)
	}
	return doc.toDomain(), nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	query := eventFilterQuery(filter)
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.coll.Find(ctx, query, listOptions(filter))
	if err != nil {
		return nil, 0, err
	}
	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	events := make([]*domain.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, int(total), nil
}

func (r *eventRepository) Update(ctx context.Context, id string, u domain.EventUpdate) (*domain.Event, error) {
	if u.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, updateDocument(u, r.now().UTC()))
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// maxJoinAttempts bounds how often AddAttendee re-runs the conditional update after a
// concurrent change left the event in a state that neither matches nor rejects the join.
const maxJoinAttempts = 3

// AddAttendee runs a conditional pipeline update so the append and the count recompute are one write.
func (r *eventRepository) AddAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	for range maxJoinAttempts {
		e, err := r.findOneAndUpdate(ctx, joinFilter(eventID, userID), joinPipeline(userID, r.now().UTC()))
		if !errors.Is(err, domain.ErrNotFound) {
			return e, err
		}
		current, err := r.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.IsOrganiser(userID):
			return nil, domain.ErrForbidden
		case current.HasAttendee(userID):
			return nil, domain.ErrAlreadyJoined
		}
	}
	return nil, fmt.Errorf("add attendee: event %s kept changing", eventID)
}

func (r *eventRepository) RemoveAttendee(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	e, err := r.findOneAndUpdate(ctx, leaveFilter(eventID, userID), leavePipeline(userID, r.now().UTC()))
	if errors.Is(err, domain.ErrNotFound) {
		return r.GetByID(ctx, eventID)
	}
	return e, err
}

func (r *eventRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*domain.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, notFoundOr(err)
	}
	return doc.toDomain(), nil
}

func notFoundOr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

func eventFilterQuery(filter domain.EventFilter) bson.M {
	query := bson.M{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(c) + "$", "$options": "i"}
	}
	return query
}

func listOptions(filter domain.EventFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if p := filter.Pagination; p != nil {
		opts.SetSkip(int64(p.Offset())).SetLimit(int64(p.PageSize))
	}
	return opts
}

func updateDocument(u domain.EventUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ScheduledAt != nil {
		set["scheduled_at"] = u.ScheduledAt.UTC()
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	return bson.M{"$set": set}
}

func joinFilter(eventID, userID string) bson.M {
	return bson.M{
		"_id":          eventID,
		"organiser_id": bson.M{"$ne": userID},
		"attendees":    bson.M{"$ne": userID},
	}
}

func joinPipeline(userID string, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attendees":  bson.M{"$concatArrays": bson.A{"$attendees", bson.A{userID}}},
			"updated_at": now,
		}}},
		{{Key: "$set", Value: bson.M{"attendee_count": bson.M{"$size": "$attendees"}}}},
	}
}

func leaveFilter(eventID, userID string) bson.M {
	return bson.M{"_id": eventID, "attendees": userID}
}

func leavePipeline(userID string, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attendees": bson.M{"$filter": bson.M{
				"input": "$attendees",
				"as":    "a",
				"cond":  bson.M{"$ne": bson.A{"$$a", userID}},
			}},
			"updated_at": now,
		}}},
		{{Key: "$set", Value: bson.M{"attendee_count": bson.M{"$size": "$attendees"}}}},
	}
}
