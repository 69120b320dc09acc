// Package metadata is a catalog of published sstables, kept in Mongo so that
// the files due for compaction can be found without reading any of them.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/sstable"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDB         = "sstprops"
	collectionName    = "sstables"
	connectionTimeout = 10 * time.Second
	pingTimeout       = 3 * time.Second
)

// Record is one published sstable. Earliest and Latest duplicate the time
// points from the properties so they can be queried. Mongo has no unsigned
// integers, so props.Unknown is stored as MaxInt64.
type Record struct {
	Key      string        `bson:"_id"`
	Meta     *sstable.Meta `bson:"meta"`
	Earliest int64         `bson:"earliest"`
	Latest   int64         `bson:"latest"`
}

func NewRecord(key string, meta *sstable.Meta) *Record {
	earliest, latest := meta.TimePoints()
	return &Record{
		Key:      key,
		Meta:     meta,
		Earliest: toInt64(earliest),
		Latest:   toInt64(latest),
	}
}

// Due returns the earlier of the two time points, in unix seconds.
func (r *Record) Due() int64 {
	return min(r.Earliest, r.Latest)
}

type Store struct {
	url string

	mu sync.Mutex
	db *mongo.Database
}

func New(url string) *Store {
	return &Store{
		url: url,
	}
}

func (s *Store) getMongo(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	opt := options.Client().ApplyURI(s.url).SetTimeout(connectionTimeout)
	client, err := mongo.Connect(ctx, opt)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	s.db = client.Database(defaultDB)
	return s.db, nil
}

func (s *Store) Init(ctx context.Context) error {
	db, err := s.getMongo(ctx)
	if err != nil {
		return fmt.Errorf("getMongo: %w", err)
	}

	err = db.CreateCollection(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("CreateCollection: %w", err)
	}

	_, err = db.Collection(collectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "earliest", Value: 1}}},
		{Keys: bson.D{{Key: "latest", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("CreateMany: %w", err)
	}

	return nil
}

func (s *Store) Insert(ctx context.Context, key string, meta *sstable.Meta) error {
	db, err := s.getMongo(ctx)
	if err != nil {
		return fmt.Errorf("getMongo: %w", err)
	}

	_, err = db.Collection(collectionName).InsertOne(ctx, NewRecord(key, meta))
	if err != nil {
		return fmt.Errorf("InsertOne: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	db, err := s.getMongo(ctx)
	if err != nil {
		return nil, fmt.Errorf("getMongo: %w", err)
	}

	rec := &Record{}
	err = db.Collection(collectionName).FindOne(ctx, bson.M{"_id": key}).Decode(rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &api.NotFound{Key: key}
		}
		return nil, fmt.Errorf("FindOne: %w", err)
	}

	return rec, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	db, err := s.getMongo(ctx)
	if err != nil {
		return fmt.Errorf("getMongo: %w", err)
	}

	res, err := db.Collection(collectionName).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("DeleteOne: %w", err)
	}

	if res.DeletedCount == 0 {
		return &api.NotFound{Key: key}
	}

	return nil
}

// GetDue returns every record with either time point at or before now,
// ordered by due time then key.
func (s *Store) GetDue(ctx context.Context, now time.Time) ([]*Record, error) {
	ts := now.Unix()
	return s.find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"earliest": bson.M{"$lte": ts}},
			bson.M{"latest": bson.M{"$lte": ts}},
		},
	})
}

// GetAll returns every record, ordered by due time then key.
func (s *Store) GetAll(ctx context.Context) ([]*Record, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]*Record, error) {
	db, err := s.getMongo(ctx)
	if err != nil {
		return nil, fmt.Errorf("getMongo: %w", err)
	}

	cursor, err := db.Collection(collectionName).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []*Record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("cursor.All: %w", err)
	}

	// Mongo can't sort on the min of two fields without an aggregation.
	SortByDue(recs)

	return recs, nil
}

// SortByDue orders records by due time, then key.
func SortByDue(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		di, dj := recs[i].Due(), recs[j].Due()
		if di != dj {
			return di < dj
		}
		return recs[i].Key < recs[j].Key
	})
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Client().Disconnect(ctx)
	s.db = nil
	return err
}

func toInt64(v uint64) int64 {
	if v == props.Unknown || v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
