//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	oa "github.com/gr-backend/authcore"
)

// Kind constants for Datastore entities
const (
	KindUser        = "DirectoryUser"
	KindProviderKey = "ProviderKey"
)

var errTaken = errors.New("key already claimed")

// DirectoryStore implements oa.DirectoryStore using Google Cloud Datastore
type DirectoryStore struct {
	client    *datastore.Client
	namespace string
}

// NewDirectoryStore creates a new Datastore-backed directory
func NewDirectoryStore(client *datastore.Client, namespace string) *DirectoryStore {
	return &DirectoryStore{client: client, namespace: namespace}
}

func (s *DirectoryStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func providerKeyName(provider oa.SourceType, id int64) string {
	return string(provider) + ":" + strconv.FormatInt(id, 10)
}

func (s *DirectoryStore) Lookup(ctx context.Context, field, value string) (*oa.DirectoryRecord, error) {
	email := value
	switch field {
	case oa.FieldEmail:
	case oa.FieldGithubID:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, oa.ErrRecordNotFound
		}
		var pk ProviderKeyEntity
		err = s.client.Get(ctx, s.namespacedKey(KindProviderKey, providerKeyName("github", id)), &pk)
		if err == datastore.ErrNoSuchEntity {
			return nil, oa.ErrRecordNotFound
		}
		if err != nil {
			return nil, err
		}
		email = pk.Email
	default:
		return nil, oa.ErrRecordNotFound
	}

	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, email), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, oa.ErrRecordNotFound
		}
		return nil, err
	}
	return entity.ToRecord(), nil
}

// Insert claims the email and, for provider users, the provider key in one
// transaction. Either one already existing is a conflict.
func (s *DirectoryStore) Insert(ctx context.Context, rec oa.DirectoryRecord) (*oa.DirectoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	userKey := s.namespacedKey(KindUser, rec.Email)
	entity := RecordToEntity(rec, userKey)
	entity.CreatedAt = now

	var pkKey *datastore.Key
	if rec.GithubID != nil {
		pkKey = s.namespacedKey(KindProviderKey, providerKeyName("github", *rec.GithubID))
	}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		if err := tx.Get(userKey, &existing); err == nil {
			return errTaken
		} else if err != datastore.ErrNoSuchEntity {
			return err
		}
		if pkKey != nil {
			var pk ProviderKeyEntity
			if err := tx.Get(pkKey, &pk); err == nil {
				return errTaken
			} else if err != datastore.ErrNoSuchEntity {
				return err
			}
			if _, err := tx.Put(pkKey, &ProviderKeyEntity{Key: pkKey, Email: rec.Email, CreatedAt: now}); err != nil {
				return err
			}
		}
		_, err := tx.Put(userKey, entity)
		return err
	})
	if err != nil {
		werr := &oa.DirectoryWriteError{Body: err.Error(), Err: err}
		werr.Conflict = errors.Is(err, errTaken) || errors.Is(err, datastore.ErrConcurrentTransaction)
		return nil, werr
	}
	return entity.ToRecord(), nil
}
