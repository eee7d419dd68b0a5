package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"codegalaxy/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const opTimeout = 5 * time.Second

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	db  *mongo.Database
	log *zap.Logger
}

func NewMongoStore(database *mongo.Database, log *zap.Logger) *MongoStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MongoStore{db: database, log: log}
}

func (s *MongoStore) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the lookup and uniqueness indexes. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		CodesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		LogsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ModelsCollection: {
			{Keys: bson.D{{Key: "modelName", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
		},
		OTPsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}, {Key: "code", Value: 1}}},
		},
		DailyChallengesCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}}, Options: unique},
		},
		CompletionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}}, Options: unique},
		},
	}

	for name, indexes := range specs {
		ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := s.col(name).Indexes().CreateMany(ictx, indexes)
		cancel()
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	s.log.Info("mongo indexes ensured", zap.Int("collections", len(specs)))
	return nil
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.LoginHistory == nil {
		user.LoginHistory = []models.LoginRecord{}
	}
	if err := validateRecord(user); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(UsersCollection).InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", translateErr(err))
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.col(UsersCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	result := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.col(UsersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) error {
	if err := validateRecord(patch); err != nil {
		return err
	}
	set := patch.Fields()
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = time.Now()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col(UsersCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) RecordLogin(ctx context.Context, id primitive.ObjectID, record models.LoginRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"lastLogin": record.Timestamp},
		"$push": bson.M{"loginHistory": bson.M{
			"$each":  []models.LoginRecord{record},
			"$slice": -models.MaxLoginHistory,
		}},
	}
	res, err := s.col(UsersCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	total, err := s.col(UsersCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	skip, limit := pageBounds(f.Page, f.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "signupDate", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	cursor, err := s.col(UsersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (s *MongoStore) CountUsers(ctx context.Context, activeSince time.Time) (int64, error) {
	filter := bson.M{}
	if !activeSince.IsZero() {
		filter["lastLogin"] = bson.M{"$gte": activeSince}
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.col(UsersCollection).CountDocuments(ctx, filter)
}

func (s *MongoStore) DeleteUserCascade(ctx context.Context, id primitive.ObjectID) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*opTimeout)
	defer cancel()

	owned := bson.M{"userId": id}
	for _, name := range []string{CodesCollection, ReviewsCollection, CompletionsCollection} {
		if _, err := s.col(name).DeleteMany(ctx, owned); err != nil {
			return fmt.Errorf("delete %s for user: %w", name, err)
		}
	}
	if _, err := s.col(OTPsCollection).DeleteMany(ctx, bson.M{"email": user.Email}); err != nil {
		return fmt.Errorf("delete otps for user: %w", err)
	}
	if _, err := s.col(UsersCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// OTPs

func (s *MongoStore) CreateOTP(ctx context.Context, otp *models.OTP) error {
	if otp.ID.IsZero() {
		otp.ID = primitive.NewObjectID()
	}
	if err := validateRecord(otp); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(OTPsCollection).InsertOne(ctx, otp); err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}
	return nil
}

func (s *MongoStore) ConsumeOTP(ctx context.Context, email, code, purpose string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"email":     email,
		"code":      code,
		"purpose":   purpose,
		"used":      false,
		"expiresAt": bson.M{"$gt": now},
	}
	res, err := s.col(OTPsCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"used": true}})
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrInvalidOTP
	}
	return nil
}

// Logs

func (s *MongoStore) AppendLog(ctx context.Context, entry *models.LogEntry) error {
	prepareLog(entry)
	if err := validateRecord(entry); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(LogsCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (s *MongoStore) ListLogs(ctx context.Context, f LogFilter) ([]models.LogEntry, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.col(LogsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find logs: %w", err)
	}
	logs := []models.LogEntry{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return logs, nil
}

func prepareLog(entry *models.LogEntry) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
}
