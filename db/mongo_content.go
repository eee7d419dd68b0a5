package db

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"codegalaxy/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Generated code

func codeQuery(f CodeFilter) bson.M {
	filter := bson.M{}
	if !f.UserID.IsZero() {
		filter["userId"] = f.UserID
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"prompt": pattern}, bson.M{"codeOutput": pattern}}
	}
	if len(f.Models) > 0 {
		filter["modelName"] = bson.M{"$in": f.Models}
	}
	if len(f.Languages) > 0 {
		filter["language"] = bson.M{"$in": f.Languages}
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

func (s *MongoStore) SaveCode(ctx context.Context, code *models.GeneratedCode) error {
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	if err := validateRecord(code); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(CodesCollection).InsertOne(ctx, code); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *MongoStore) ListCodes(ctx context.Context, f CodeFilter) ([]models.GeneratedCode, error) {
	order := -1
	if f.SortOldest {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: order}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.col(CodesCollection).Find(ctx, codeQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find codes: %w", err)
	}
	codes := []models.GeneratedCode{}
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	return codes, nil
}

func (s *MongoStore) CountCodes(ctx context.Context, f CodeFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.col(CodesCollection).CountDocuments(ctx, codeQuery(f))
}

func (s *MongoStore) DeleteCode(ctx context.Context, userID, codeID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col(CodesCollection).DeleteOne(ctx, bson.M{"_id": codeID, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CodeStats(ctx context.Context, userID primitive.ObjectID) (models.CodeStats, error) {
	var stats models.CodeStats
	total, err := s.CountCodes(ctx, CodeFilter{UserID: userID})
	if err != nil {
		return stats, fmt.Errorf("count codes: %w", err)
	}
	stats.TotalCodes = total
	if total == 0 {
		return stats, nil
	}
	if stats.FavoriteModel, err = s.mostUsed(ctx, userID, "$modelName"); err != nil {
		return stats, err
	}
	if stats.FavoriteLanguage, err = s.mostUsed(ctx, userID, "$language"); err != nil {
		return stats, err
	}
	return stats, nil
}

// mostUsed returns the most frequent value of field in a user's codes.
func (s *MongoStore) mostUsed(ctx context.Context, userID primitive.ObjectID, field string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"userId": userID}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: 1}},
	}
	cursor, err := s.col(CodesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return "", fmt.Errorf("aggregate %s: %w", field, err)
	}
	var rows []struct {
		Value string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return "", fmt.Errorf("decode %s: %w", field, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Value, nil
}

func (s *MongoStore) TopCoders(ctx context.Context, limit int) ([]models.UserCount, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{"_id": "$userId", "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	cursor, err := s.col(CodesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate top coders: %w", err)
	}
	rows := []models.UserCount{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode top coders: %w", err)
	}
	return rows, nil
}

func (s *MongoStore) ModelUsageByUser(ctx context.Context) ([]models.UserModelUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"userId": "$userId", "model": "$modelName"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.col(CodesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate model usage: %w", err)
	}
	var rows []struct {
		Key struct {
			UserID primitive.ObjectID `bson:"userId"`
			Model  string             `bson:"model"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode model usage: %w", err)
	}

	byUser := map[primitive.ObjectID]map[string]int64{}
	for _, row := range rows {
		counts, ok := byUser[row.Key.UserID]
		if !ok {
			counts = map[string]int64{}
			byUser[row.Key.UserID] = counts
		}
		counts[row.Key.Model] += row.Count
	}
	return flattenModelUsage(byUser), nil
}

func flattenModelUsage(byUser map[primitive.ObjectID]map[string]int64) []models.UserModelUsage {
	usage := make([]models.UserModelUsage, 0, len(byUser))
	for id, counts := range byUser {
		usage = append(usage, models.UserModelUsage{UserID: id, Counts: counts})
	}
	sort.Slice(usage, func(i, j int) bool {
		return usage[i].UserID.Hex() < usage[j].UserID.Hex()
	})
	return usage
}

// Reviews

func (s *MongoStore) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if review.HelpfulVoters == nil {
		review.HelpfulVoters = []primitive.ObjectID{}
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	if err := validateRecord(review); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(ReviewsCollection).InsertOne(ctx, review); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *MongoStore) GetReview(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var review models.Review
	if err := s.col(ReviewsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&review); err != nil {
		return nil, translateErr(err)
	}
	return &review, nil
}

func (s *MongoStore) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.UserID.IsZero() {
		filter["userId"] = f.UserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.col(ReviewsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}

func (s *MongoStore) CountReviews(ctx context.Context, status string) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.col(ReviewsCollection).CountDocuments(ctx, filter)
}

// reviewMissOrConflict tells a missing review apart from one whose
// state did not match an update filter.
func (s *MongoStore) reviewMissOrConflict(ctx context.Context, id primitive.ObjectID, conflict error) error {
	n, err := s.col(ReviewsCollection).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count review: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return conflict
}

func (s *MongoStore) ModerateReview(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string, at time.Time) error {
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return ErrInvalidTransition
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"status": status, "moderatedBy": adminID, "moderatedAt": at}
	if reason != "" {
		set["rejectionReason"] = reason
	}
	res, err := s.col(ReviewsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ReviewPending},
		bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("moderate review: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.reviewMissOrConflict(ctx, id, ErrInvalidTransition)
	}
	return nil
}

func (s *MongoStore) RespondToReview(ctx context.Context, id primitive.ObjectID, response string, adminID primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col(ReviewsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"adminResponse": response,
		"respondedBy":   adminID,
		"respondedAt":   at,
	}})
	if err != nil {
		return fmt.Errorf("respond to review: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) VoteHelpful(ctx context.Context, reviewID, voterID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col(ReviewsCollection).UpdateOne(ctx,
		bson.M{"_id": reviewID, "helpfulVoters": bson.M{"$ne": voterID}},
		bson.M{
			"$addToSet": bson.M{"helpfulVoters": voterID},
			"$inc":      bson.M{"helpfulCount": 1},
		})
	if err != nil {
		return fmt.Errorf("vote helpful: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.reviewMissOrConflict(ctx, reviewID, ErrAlreadyVoted)
	}
	return nil
}

func (s *MongoStore) TopContributors(ctx context.Context) ([]models.ContributorStat, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.ReviewApproved}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":             "$userId",
			"approvedReviews": bson.M{"$sum": 1},
			"helpfulVotes":    bson.M{"$sum": "$helpfulCount"},
		}}},
	}
	cursor, err := s.col(ReviewsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate contributors: %w", err)
	}
	rows := []models.ContributorStat{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode contributors: %w", err)
	}
	return rows, nil
}

// Model usage

func ifNullZero(path string) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{path, 0}}}
}

// RecordModelUsage upserts the (model, day) row with a two-stage update
// pipeline so the counters and the average move together.
func (s *MongoStore) RecordModelUsage(ctx context.Context, sample models.UsageSample) error {
	if err := validateRecord(sample); err != nil {
		return err
	}
	at := sample.At
	if at.IsZero() {
		at = time.Now()
	}
	var succeeded, failed int
	if sample.Success {
		succeeded = 1
	} else {
		failed = 1
	}
	langField := "languages." + languageKey(sample.Language)

	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "totalUses", Value: bson.D{{Key: "$add", Value: bson.A{ifNullZero("$totalUses"), 1}}}},
			{Key: "successfulUses", Value: bson.D{{Key: "$add", Value: bson.A{ifNullZero("$successfulUses"), succeeded}}}},
			{Key: "failedUses", Value: bson.D{{Key: "$add", Value: bson.A{ifNullZero("$failedUses"), failed}}}},
			{Key: "totalResponseTime", Value: bson.D{{Key: "$add", Value: bson.A{ifNullZero("$totalResponseTime"), sample.ResponseTime}}}},
			{Key: langField, Value: bson.D{{Key: "$add", Value: bson.A{ifNullZero("$" + langField), 1}}}},
			{Key: "updatedAt", Value: at},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "averageResponseTime", Value: bson.D{{Key: "$divide", Value: bson.A{"$totalResponseTime", "$totalUses"}}}},
		}}},
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"modelName": sample.ModelName, "date": models.DayKey(at)}
	if _, err := s.col(ModelsCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("record model usage: %w", err)
	}
	return nil
}

func (s *MongoStore) ModelStats(ctx context.Context, model string, days int, now time.Time) (models.ModelStats, error) {
	from, to, days := usageWindow(days, now)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"modelName": model, "date": bson.M{"$gte": from, "$lte": to}}
	cursor, err := s.col(ModelsCollection).Find(ctx, filter)
	if err != nil {
		return models.ModelStats{ModelName: model, Days: days}, fmt.Errorf("find model usage: %w", err)
	}
	var rows []models.ModelUsageStat
	if err := cursor.All(ctx, &rows); err != nil {
		return models.ModelStats{ModelName: model, Days: days}, fmt.Errorf("decode model usage: %w", err)
	}
	return summarizeUsage(model, days, rows), nil
}

// Challenges

func (s *MongoStore) GetDailyChallenge(ctx context.Context, date string) (*models.DailyChallenge, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var challenge models.DailyChallenge
	if err := s.col(DailyChallengesCollection).FindOne(ctx, bson.M{"date": date}).Decode(&challenge); err != nil {
		return nil, translateErr(err)
	}
	return &challenge, nil
}

func (s *MongoStore) SaveDailyChallenge(ctx context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error) {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	if err := validateRecord(challenge); err != nil {
		return nil, err
	}
	insert := *challenge
	insert.ID = primitive.ObjectID{}

	uctx, cancel := context.WithTimeout(ctx, opTimeout)
	_, err := s.col(DailyChallengesCollection).UpdateOne(uctx,
		bson.M{"date": challenge.Date},
		bson.M{"$setOnInsert": insert},
		options.Update().SetUpsert(true))
	cancel()
	// A concurrent upsert can lose the race on the unique index; the
	// winner's document is read back below either way.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("save daily challenge: %w", err)
	}
	return s.GetDailyChallenge(ctx, challenge.Date)
}

func (s *MongoStore) CompleteChallenge(ctx context.Context, completion *models.ChallengeCompletion) error {
	if completion.ID.IsZero() {
		completion.ID = primitive.NewObjectID()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now()
	}
	if err := validateRecord(completion); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.col(CompletionsCollection).InsertOne(ctx, completion); err != nil {
		return fmt.Errorf("insert completion: %w", translateErr(err))
	}
	return nil
}

func (s *MongoStore) ListCompletions(ctx context.Context, userID primitive.ObjectID) ([]models.ChallengeCompletion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.col(CompletionsCollection).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	completions := []models.ChallengeCompletion{}
	if err := cursor.All(ctx, &completions); err != nil {
		return nil, fmt.Errorf("decode completions: %w", err)
	}
	return completions, nil
}

var _ Store = (*MongoStore)(nil)
