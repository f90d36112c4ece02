package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opensource-finance/veritas/internal/domain"
)

// Collection names.
const (
	collThreats  = "known_threats"
	collScanLogs = "scan_logs"
	collReports  = "reports"
	collRules    = "signal_rules"
)

// MongoRepository implements domain.Repository on MongoDB.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to MongoDB and ensures indexes.
func NewMongo(cfg domain.RepositoryConfig) (*MongoRepository, error) {
	uri := cfg.MongoURI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	database := cfg.MongoDatabase
	if database == "" {
		database = "veritas"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(30 * time.Second)
	if cfg.MaxOpenConns > 0 {
		clientOpts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := &MongoRepository{
		client: client,
		db:     client.Database(database),
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collThreats: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "added_date", Value: -1}}},
		},
		collScanLogs: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "verdict", Value: 1}}},
		},
		collReports: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "url", Value: 1}, {Key: "status", Value: 1}}},
		},
		collRules: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}
	return nil
}

// FindThreat mirrors SQLRepository.FindThreat using $indexOfCP and an escaped regex.
func (r *MongoRepository) FindThreat(ctx context.Context, candidate string) (*domain.KnownThreatRecord, error) {
	c, ok := normalizeCandidate(candidate)
	if !ok {
		return nil, nil
	}

	or := bson.A{
		bson.M{"url": bson.M{"$ne": ""}, "$expr": candidateContains(c, "$url")},
		bson.M{"domain": bson.M{"$nin": bson.A{"", nil}}, "$expr": candidateContains(c, "$domain")},
	}
	if utf8.RuneCountInString(c) >= minReverseMatchLen {
		or = append(or, bson.M{"url": bson.M{"$regex": regexp.QuoteMeta(c), "$options": "i"}})
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "added_date", Value: -1}, {Key: "id", Value: 1}})

	var t domain.KnownThreatRecord
	err := r.db.Collection(collThreats).FindOne(ctx, bson.M{"$or": or}, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find threat: %w", err)
	}
	return &t, nil
}

// candidateContains builds an aggregation predicate: the literal candidate contains the lowercased field.
func candidateContains(candidate, field string) bson.M {
	return bson.M{"$gte": bson.A{
		bson.M{"$indexOfCP": bson.A{candidate, bson.M{"$toLower": field}}},
		0,
	}}
}

// SaveThreat stores a curated threat.
func (r *MongoRepository) SaveThreat(ctx context.Context, t *domain.KnownThreatRecord) error {
	if err := prepareThreat(t); err != nil {
		return err
	}
	_, err := r.db.Collection(collThreats).InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: threat %s", ErrDuplicate, t.URL)
	}
	return err
}

// ListThreats returns the latest threats, newest first.
func (r *MongoRepository) ListThreats(ctx context.Context, limit int) ([]*domain.KnownThreatRecord, error) {
	var threats []*domain.KnownThreatRecord
	err := r.findLatest(ctx, collThreats, "added_date", limit, &threats)
	return threats, err
}

// DeleteThreat removes a threat by ID.
func (r *MongoRepository) DeleteThreat(ctx context.Context, id string) error {
	return r.deleteByID(ctx, collThreats, id)
}

// AppendScanLog records a completed analysis.
func (r *MongoRepository) AppendScanLog(ctx context.Context, entry *domain.ScanLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.db.Collection(collScanLogs).InsertOne(ctx, entry)
	return err
}

// RecentScans returns the latest scan log entries, newest first.
func (r *MongoRepository) RecentScans(ctx context.Context, limit int) ([]*domain.ScanLogEntry, error) {
	var entries []*domain.ScanLogEntry
	err := r.findLatest(ctx, collScanLogs, "timestamp", limit, &entries)
	return entries, err
}

// SaveReport stores a user report in pending status.
func (r *MongoRepository) SaveReport(ctx context.Context, report *domain.Report) error {
	if err := prepareReport(report); err != nil {
		return err
	}
	_, err := r.db.Collection(collReports).InsertOne(ctx, report)
	return err
}

// ListReports returns the latest reports, newest first.
func (r *MongoRepository) ListReports(ctx context.Context, limit int) ([]*domain.Report, error) {
	var reports []*domain.Report
	err := r.findLatest(ctx, collReports, "reported_at", limit, &reports)
	return reports, err
}

// MarkReportsVerified flags pending reports for url as verified.
func (r *MongoRepository) MarkReportsVerified(ctx context.Context, url string) (int64, error) {
	filter := bson.M{
		"url":    bson.M{"$regex": "^" + regexp.QuoteMeta(strings.TrimSpace(url)) + "$", "$options": "i"},
		"status": domain.ReportPending,
	}
	res, err := r.db.Collection(collReports).UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"status": domain.ReportVerified}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SaveSignalRule inserts or replaces a signal rule.
func (r *MongoRepository) SaveSignalRule(ctx context.Context, rule *domain.SignalRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Collection(collRules).ReplaceOne(ctx, bson.M{"id": rule.ID}, rule,
		options.Replace().SetUpsert(true))
	return err
}

// ListSignalRules returns all stored signal rules ordered by ID.
func (r *MongoRepository) ListSignalRules(ctx context.Context) ([]*domain.SignalRule, error) {
	cursor, err := r.db.Collection(collRules).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []*domain.SignalRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// DeleteSignalRule removes a signal rule by ID.
func (r *MongoRepository) DeleteSignalRule(ctx context.Context, id string) error {
	return r.deleteByID(ctx, collRules, id)
}

// Stats aggregates counters for the admin dashboard.
func (r *MongoRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var s domain.Stats
	var err error

	if s.TotalScans, err = r.db.Collection(collScanLogs).CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if s.TotalReports, err = r.db.Collection(collReports).CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if s.TotalScams, err = r.db.Collection(collThreats).CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if s.HighRiskScans, err = r.db.Collection(collScanLogs).CountDocuments(ctx,
		bson.M{"verdict": domain.VerdictHigh}); err != nil {
		return nil, err
	}
	if s.RecentScans, err = r.RecentScans(ctx, 10); err != nil {
		return nil, err
	}

	return &s, nil
}

// Ping checks database connectivity.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) findLatest(ctx context.Context, coll, sortField string, limit int, out any) error {
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "id", Value: 1}}).
		SetLimit(int64(clampLimit(limit)))

	cursor, err := r.db.Collection(coll).Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, out)
}

func (r *MongoRepository) deleteByID(ctx context.Context, coll, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	res, err := r.db.Collection(coll).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
