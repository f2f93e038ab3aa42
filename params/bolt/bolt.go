// Package bolt is a params.Store backed by a bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/util"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// DefaultBucket holds parameters unless Store.Bucket says otherwise.
var DefaultBucket = "params"

// NotOpen is returned when the Store is used before Open or after
// Close.
var NotOpen = errors.New("params store not open")

// Store keeps parameter values as JSON arrays in one bucket.
type Store struct {
	Debug  bool
	Bucket string

	filename string
	db       *bolt.DB
}

// NewStore makes a Store for the given file.  Call Open before use.
func NewStore(filename string) (*Store, error) {
	return &Store{
		Bucket:   DefaultBucket,
		filename: filename,
	}, nil
}

// Open opens (creating if necessary) the database file.
func (s *Store) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(s.Bucket))
		return err
	})
}

// Close closes the database.
func (s *Store) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) logf(msg string, fields ...zap.Field) {
	if s.Debug {
		util.Logger().Debug("bolt params."+msg, fields...)
	}
}

func (s *Store) Get(ctx context.Context, name string) (tensor.Tensor, bool, error) {
	if s.db == nil {
		return tensor.Tensor{}, false, NotOpen
	}
	var (
		v    tensor.Tensor
		have bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.Bucket))
		if b == nil {
			return nil
		}
		js := b.Get([]byte(name))
		if js == nil {
			return nil
		}
		have = true
		return json.Unmarshal(js, &v)
	})
	if err != nil {
		return tensor.Tensor{}, false, err
	}
	s.logf("Get", zap.String("name", name), zap.Bool("found", have))
	return v, have, nil
}

func (s *Store) Set(ctx context.Context, name string, v tensor.Tensor) error {
	if s.db == nil {
		return NotOpen
	}
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.logf("Set", zap.String("name", name), zap.ByteString("value", js))
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(s.Bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), js)
	})
}

func (s *Store) Init(ctx context.Context, name string, init tensor.Tensor) (tensor.Tensor, error) {
	if s.db == nil {
		return tensor.Tensor{}, NotOpen
	}
	v := init.Detach()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(s.Bucket))
		if err != nil {
			return err
		}
		if js := b.Get([]byte(name)); js != nil {
			return json.Unmarshal(js, &v)
		}
		js, err := json.Marshal(v)
		if err != nil {
			return err
		}
		s.logf("Init", zap.String("name", name), zap.ByteString("value", js))
		return b.Put([]byte(name), js)
	})
	if err != nil {
		return tensor.Tensor{}, err
	}
	return v, nil
}

func (s *Store) Names(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, NotOpen
	}
	acc := make([]string, 0, 16)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.Bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			acc = append(acc, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(acc)
	return acc, nil
}
