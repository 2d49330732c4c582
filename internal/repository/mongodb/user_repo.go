package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"eventhub/internal/domain"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	Salt         string    `bson:"salt"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Role:         d.Role,
		PasswordHash: d.PasswordHash,
		Salt:         d.Salt,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) domain.UserRepository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	doc := toUserDocument(u)
	doc.ID = uuid.NewString()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	u.ID = doc.ID
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// ListByIDs returns the users whose id is in ids, in the order of ids. Unknown ids are skipped.
func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return orderUsers(ids, docs), nil
}

func orderUsers(ids []string, docs []userDocument) []*domain.User {
	byID := make(map[string]userDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	users := make([]*domain.User, 0, len(docs))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			users = append(users, d.toDomain())
			delete(byID, id)
		}
	}
	return users
}
