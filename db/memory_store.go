package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"codegalaxy/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements Store in process memory. Records are copied in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[primitive.ObjectID]models.User
	otps        []models.OTP
	codes       []models.GeneratedCode
	reviews     map[primitive.ObjectID]models.Review
	logs        []models.LogEntry
	usage       map[string]models.ModelUsageStat
	challenges  map[string]models.DailyChallenge
	completions []models.ChallengeCompletion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[primitive.ObjectID]models.User{},
		reviews:    map[primitive.ObjectID]models.Review{},
		usage:      map[string]models.ModelUsageStat{},
		challenges: map[string]models.DailyChallenge{},
	}
}

// Users

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.LoginHistory == nil {
		user.LoginHistory = []models.LoginRecord{}
	}
	if err := validateRecord(user); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	m.users[user.ID] = cloneUser(*user)
	return nil
}

func cloneUser(u models.User) models.User {
	u.LoginHistory = append([]models.LoginRecord{}, u.LoginHistory...)
	return u
}

func (m *MemoryStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id primitive.ObjectID, patch models.UserPatch) error {
	if err := validateRecord(patch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&u)
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *MemoryStore) RecordLogin(_ context.Context, id primitive.ObjectID, record models.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	ts := record.Timestamp
	u.LastLogin = &ts
	history := append(append([]models.LoginRecord{}, u.LoginHistory...), record)
	if len(history) > models.MaxLoginHistory {
		history = history[len(history)-models.MaxLoginHistory:]
	}
	u.LoginHistory = history
	m.users[id] = u
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context, f UserFilter) ([]models.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(f.Search)
	matched := []models.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SignupDate.After(matched[j].SignupDate)
	})

	total := int64(len(matched))
	skip, limit := pageBounds(f.Page, f.Limit)
	if skip >= len(matched) {
		return []models.User{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func (m *MemoryStore) CountUsers(_ context.Context, activeSince time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, u := range m.users {
		if activeSince.IsZero() || (u.LastLogin != nil && !u.LastLogin.Before(activeSince)) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteUserCascade(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}

	codes := m.codes[:0]
	for _, c := range m.codes {
		if c.UserID != id {
			codes = append(codes, c)
		}
	}
	m.codes = codes

	for rid, r := range m.reviews {
		if r.UserID == id {
			delete(m.reviews, rid)
		}
	}

	completions := m.completions[:0]
	for _, c := range m.completions {
		if c.UserID != id {
			completions = append(completions, c)
		}
	}
	m.completions = completions

	otps := m.otps[:0]
	for _, o := range m.otps {
		if o.Email != u.Email {
			otps = append(otps, o)
		}
	}
	m.otps = otps

	delete(m.users, id)
	return nil
}

// OTPs

func (m *MemoryStore) CreateOTP(_ context.Context, otp *models.OTP) error {
	if otp.ID.IsZero() {
		otp.ID = primitive.NewObjectID()
	}
	if err := validateRecord(otp); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps = append(m.otps, *otp)
	return nil
}

func (m *MemoryStore) ConsumeOTP(_ context.Context, email, code, purpose string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.otps {
		o := &m.otps[i]
		if o.Email == email && o.Code == code && o.Purpose == purpose && !o.Used && o.ExpiresAt.After(now) {
			o.Used = true
			return nil
		}
	}
	return ErrInvalidOTP
}

// Generated code

func (f CodeFilter) matches(c models.GeneratedCode) bool {
	if !f.UserID.IsZero() && c.UserID != f.UserID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Prompt), q) && !strings.Contains(strings.ToLower(c.CodeOutput), q) {
			return false
		}
	}
	if len(f.Models) > 0 && !containsString(f.Models, c.ModelName) {
		return false
	}
	if len(f.Languages) > 0 && !containsString(f.Languages, c.Language) {
		return false
	}
	if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !c.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func (m *MemoryStore) SaveCode(_ context.Context, code *models.GeneratedCode) error {
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	if err := validateRecord(code); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, *code)
	return nil
}

func (m *MemoryStore) ListCodes(_ context.Context, f CodeFilter) ([]models.GeneratedCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := []models.GeneratedCode{}
	for _, c := range m.codes {
		if f.matches(c) {
			codes = append(codes, c)
		}
	}
	sort.SliceStable(codes, func(i, j int) bool {
		if f.SortOldest {
			return codes[i].CreatedAt.Before(codes[j].CreatedAt)
		}
		return codes[i].CreatedAt.After(codes[j].CreatedAt)
	})
	if f.Limit > 0 && len(codes) > f.Limit {
		codes = codes[:f.Limit]
	}
	return codes, nil
}

func (m *MemoryStore) CountCodes(_ context.Context, f CodeFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.codes {
		if f.matches(c) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteCode(_ context.Context, userID, codeID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.codes {
		if c.ID == codeID && c.UserID == userID {
			m.codes = append(m.codes[:i], m.codes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CodeStats(_ context.Context, userID primitive.ObjectID) (models.CodeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.CodeStats
	byModel := map[string]int{}
	byLanguage := map[string]int{}
	for _, c := range m.codes {
		if c.UserID != userID {
			continue
		}
		stats.TotalCodes++
		byModel[c.ModelName]++
		byLanguage[c.Language]++
	}
	stats.FavoriteModel = mostFrequent(byModel)
	stats.FavoriteLanguage = mostFrequent(byLanguage)
	return stats, nil
}

// mostFrequent returns the key with the highest count, breaking ties by
// name so results are stable.
func mostFrequent(counts map[string]int) string {
	best, bestCount := "", 0
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

func (m *MemoryStore) TopCoders(_ context.Context, limit int) ([]models.UserCount, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	counts := map[primitive.ObjectID]int64{}
	for _, c := range m.codes {
		counts[c.UserID]++
	}
	m.mu.RUnlock()

	rows := make([]models.UserCount, 0, len(counts))
	for id, n := range counts {
		rows = append(rows, models.UserCount{UserID: id, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].UserID.Hex() < rows[j].UserID.Hex()
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MemoryStore) ModelUsageByUser(_ context.Context) ([]models.UserModelUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byUser := map[primitive.ObjectID]map[string]int64{}
	for _, c := range m.codes {
		counts, ok := byUser[c.UserID]
		if !ok {
			counts = map[string]int64{}
			byUser[c.UserID] = counts
		}
		counts[c.ModelName]++
	}
	return flattenModelUsage(byUser), nil
}

// Reviews

func cloneReview(r models.Review) models.Review {
	r.HelpfulVoters = append([]primitive.ObjectID{}, r.HelpfulVoters...)
	return r
}

func (m *MemoryStore) CreateReview(_ context.Context, review *models.Review) error {
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
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[review.ID] = cloneReview(*review)
	return nil
}

func (m *MemoryStore) GetReview(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = cloneReview(r)
	return &r, nil
}

func (m *MemoryStore) ListReviews(_ context.Context, f ReviewFilter) ([]models.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reviews := []models.Review{}
	for _, r := range m.reviews {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if !f.UserID.IsZero() && r.UserID != f.UserID {
			continue
		}
		reviews = append(reviews, cloneReview(r))
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	if f.Limit > 0 && len(reviews) > f.Limit {
		reviews = reviews[:f.Limit]
	}
	return reviews, nil
}

func (m *MemoryStore) CountReviews(_ context.Context, status string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, r := range m.reviews {
		if status == "" || r.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ModerateReview(_ context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string, at time.Time) error {
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return ErrInvalidTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reviews[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.ReviewPending {
		return ErrInvalidTransition
	}
	r.Status = status
	r.ModeratedBy = adminID
	r.ModeratedAt = &at
	if reason != "" {
		r.RejectionReason = reason
	}
	m.reviews[id] = r
	return nil
}

func (m *MemoryStore) RespondToReview(_ context.Context, id primitive.ObjectID, response string, adminID primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reviews[id]
	if !ok {
		return ErrNotFound
	}
	r.AdminResponse = response
	r.RespondedBy = adminID
	r.RespondedAt = &at
	m.reviews[id] = r
	return nil
}

func (m *MemoryStore) VoteHelpful(_ context.Context, reviewID, voterID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reviews[reviewID]
	if !ok {
		return ErrNotFound
	}
	for _, v := range r.HelpfulVoters {
		if v == voterID {
			return ErrAlreadyVoted
		}
	}
	r.HelpfulVoters = append(append([]primitive.ObjectID{}, r.HelpfulVoters...), voterID)
	r.HelpfulCount++
	m.reviews[reviewID] = r
	return nil
}

func (m *MemoryStore) TopContributors(_ context.Context) ([]models.ContributorStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byUser := map[primitive.ObjectID]*models.ContributorStat{}
	for _, r := range m.reviews {
		if r.Status != models.ReviewApproved {
			continue
		}
		stat, ok := byUser[r.UserID]
		if !ok {
			stat = &models.ContributorStat{UserID: r.UserID}
			byUser[r.UserID] = stat
		}
		stat.ApprovedReviews++
		stat.HelpfulVotes += int64(r.HelpfulCount)
	}
	rows := make([]models.ContributorStat, 0, len(byUser))
	for _, stat := range byUser {
		rows = append(rows, *stat)
	}
	return rows, nil
}

// Logs

func (m *MemoryStore) AppendLog(_ context.Context, entry *models.LogEntry) error {
	prepareLog(entry)
	if err := validateRecord(entry); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *MemoryStore) ListLogs(_ context.Context, f LogFilter) ([]models.LogEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := []models.LogEntry{}
	for i := len(m.logs) - 1; i >= 0 && len(logs) < limit; i-- {
		if f.Type == "" || m.logs[i].Type == f.Type {
			logs = append(logs, m.logs[i])
		}
	}
	return logs, nil
}

// Model usage

func (m *MemoryStore) RecordModelUsage(_ context.Context, sample models.UsageSample) error {
	if err := validateRecord(sample); err != nil {
		return err
	}
	at := sample.At
	if at.IsZero() {
		at = time.Now()
	}
	day := models.DayKey(at)
	key := sample.ModelName + "|" + day

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.usage[key]
	if !ok {
		row = models.ModelUsageStat{
			ID:        primitive.NewObjectID(),
			ModelName: sample.ModelName,
			Date:      day,
			Languages: map[string]int64{},
		}
	}
	row.TotalUses++
	if sample.Success {
		row.SuccessfulUses++
	} else {
		row.FailedUses++
	}
	row.TotalResponseTime += sample.ResponseTime
	row.AverageResponseTime = row.TotalResponseTime / float64(row.TotalUses)
	row.Languages[languageKey(sample.Language)]++
	row.UpdatedAt = at
	m.usage[key] = row
	return nil
}

// UsageRow returns the stored row for one model and day.
func (m *MemoryStore) UsageRow(model, day string) (models.ModelUsageStat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.usage[model+"|"+day]
	return row, ok
}

func (m *MemoryStore) ModelStats(_ context.Context, model string, days int, now time.Time) (models.ModelStats, error) {
	from, to, days := usageWindow(days, now)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []models.ModelUsageStat
	for _, row := range m.usage {
		if row.ModelName == model && row.Date >= from && row.Date <= to {
			rows = append(rows, row)
		}
	}
	return summarizeUsage(model, days, rows), nil
}

// Challenges

func (m *MemoryStore) GetDailyChallenge(_ context.Context, date string) (*models.DailyChallenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.challenges[date]
	if !ok {
		return nil, ErrNotFound
	}
	return &ch, nil
}

func (m *MemoryStore) SaveDailyChallenge(_ context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error) {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	if err := validateRecord(challenge); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.challenges[challenge.Date]; ok {
		return &existing, nil
	}
	stored := *challenge
	stored.ID = primitive.NewObjectID()
	m.challenges[stored.Date] = stored
	return &stored, nil
}

func (m *MemoryStore) CompleteChallenge(_ context.Context, completion *models.ChallengeCompletion) error {
	if completion.ID.IsZero() {
		completion.ID = primitive.NewObjectID()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now()
	}
	if err := validateRecord(completion); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.completions {
		if c.UserID == completion.UserID && c.Date == completion.Date {
			return ErrDuplicate
		}
	}
	m.completions = append(m.completions, *completion)
	return nil
}

func (m *MemoryStore) ListCompletions(_ context.Context, userID primitive.ObjectID) ([]models.ChallengeCompletion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	completions := []models.ChallengeCompletion{}
	for _, c := range m.completions {
		if c.UserID == userID {
			completions = append(completions, c)
		}
	}
	sort.Slice(completions, func(i, j int) bool {
		return completions[i].Date > completions[j].Date
	})
	return completions, nil
}

var _ Store = (*MemoryStore)(nil)
