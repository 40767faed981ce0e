package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/backoffice/internal/model"
)

// UsersCollection is the collection the marketing site keeps its users in.
const UsersCollection = "users"

type mongoUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Email       string             `bson:"email"`
	Password    string             `bson:"password,omitempty"`
	Role        string             `bson:"role"`
	IsActive    bool               `bson:"isActive"`
	Preferences *mongoPreferences  `bson:"preferences,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type mongoPreferences struct {
	Notifications *mongoNotificationPreferences `bson:"notifications,omitempty"`
}

type mongoNotificationPreferences struct {
	Email *bool `bson:"email,omitempty"`
}

func (d mongoUser) toModel() model.AdminUser {
	u := model.AdminUser{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Role:      model.Role(d.Role),
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
	if d.Preferences != nil {
		u.Preferences = &model.Preferences{}
		if n := d.Preferences.Notifications; n != nil {
			u.Preferences.Notifications = &model.NotificationPreferences{Email: n.Email}
		}
	}
	return u
}

// MongoDirectory reads admin users from the users collection shared with the
// marketing site.
type MongoDirectory struct {
	coll *mongo.Collection
	log  *zap.SugaredLogger
}

func NewMongoDirectory(coll *mongo.Collection) *MongoDirectory {
	return &MongoDirectory{coll: coll, log: zap.S().Named("store")}
}

// ListNotifiable returns active admins and moderators in natural order.
// Documents that do not decode are logged and left out.
func (s *MongoDirectory) ListNotifiable(ctx context.Context) ([]model.AdminUser, error) {
	filter := bson.M{
		"isActive": true,
		"role":     bson.M{"$in": []string{string(model.RoleAdmin), string(model.RoleModerator)}},
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifiable users: %w", err)
	}
	defer cur.Close(ctx)

	var users []model.AdminUser
	for cur.Next(ctx) {
		var d mongoUser
		if err := cur.Decode(&d); err != nil {
			s.log.Warnw("skipping admin user with malformed document",
				"userId", cur.Current.Lookup("_id").String(), "error", err)
			continue
		}
		users = append(users, d.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *MongoDirectory) CountAll(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	return int(n), err
}

// Create inserts u. IDs that are not ObjectID hex strings are replaced with a
// fresh ObjectID.
func (s *MongoDirectory) Create(ctx context.Context, u model.AdminUser, passwordHash string) error {
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		id = primitive.NewObjectID()
	}
	doc := mongoUser{
		ID:        id,
		Email:     u.Email,
		Password:  passwordHash,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if p := u.Preferences; p != nil {
		doc.Preferences = &mongoPreferences{}
		if p.Notifications != nil {
			doc.Preferences.Notifications = &mongoNotificationPreferences{Email: p.Notifications.Email}
		}
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique email index and the index backing
// ListNotifiable.
func (s *MongoDirectory) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "role", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoDirectory) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *MongoDirectory) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}
