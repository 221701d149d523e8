// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

// Package tasks stores task records with title and description encrypted
// under the owner's content key. The store is the record-layer consumer of
// the field encryption pipeline: it resolves content keys through the key
// service (owner or grantee alike) and treats the ciphers as opaque
// codecs. Plaintext exists only in memory for the duration of a call.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/go-taskvault/pkg/crypto/symmetric"
	"github.com/taskvault/go-taskvault/pkg/fields"
	"github.com/taskvault/go-taskvault/pkg/keyservice"
	"github.com/taskvault/go-taskvault/pkg/storage"
)

const taskPrefix = "tasks/"

// encryptedFields are the task attributes protected by the owner's
// content key. Status stays plaintext so workflow queries need no key.
var encryptedFields = []string{"title", "description"}

// ErrTaskNotFound indicates no task exists with the given owner and id.
var ErrTaskNotFound = errors.New("tasks: task not found")

// Task is a task record. Title and Description are plaintext in memory
// and ciphertext at rest.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists task records with field-level encryption.
type Store struct {
	backend storage.Backend
	keys    *keyservice.Service
}

// NewStore creates a task store over the given backend, resolving content
// keys through the given key service.
func NewStore(backend storage.Backend, keys *keyservice.Service) *Store {
	return &Store{backend: backend, keys: keys}
}

// Create encrypts and persists a new task owned by requesterID. The
// requester must hold their own live session (self-grant path).
func (s *Store) Create(ctx context.Context, requesterID, title, description, status string) (*Task, error) {
	cipher, err := s.contentCipher(ctx, requesterID, requesterID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.NewString(),
		OwnerID:     requesterID,
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.put(task, cipher, true); err != nil {
		return nil, err
	}
	return task, nil
}

// Get loads and decrypts a task on behalf of requesterID, who may be the
// owner or any grantee of the owner's content key.
func (s *Store) Get(ctx context.Context, requesterID, ownerID, taskID string) (*Task, error) {
	// Authorization first: an ungranted requester learns nothing about
	// whether the task exists.
	cipher, err := s.contentCipher(ctx, ownerID, requesterID)
	if err != nil {
		return nil, err
	}

	task, err := s.load(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.decryptTask(task, cipher); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all of ownerID's tasks decrypted on behalf of requesterID.
func (s *Store) List(ctx context.Context, requesterID, ownerID string) ([]*Task, error) {
	cipher, err := s.contentCipher(ctx, ownerID, requesterID)
	if err != nil {
		return nil, err
	}

	keys, err := s.backend.List(taskPrefix + ownerID + "/")
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}

	list := make([]*Task, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.Get(key)
		if err != nil {
			return nil, fmt.Errorf("tasks: load %q: %w", key, err)
		}
		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			return nil, fmt.Errorf("tasks: unmarshal %q: %w", key, err)
		}
		if err := s.decryptTask(&task, cipher); err != nil {
			return nil, err
		}
		list = append(list, &task)
	}
	return list, nil
}

// Update re-encrypts and stores new field values for an existing task.
// Grantees may update shared tasks; the record stays encrypted under the
// owner's content key regardless of who writes.
func (s *Store) Update(ctx context.Context, requesterID, ownerID, taskID string, title, description, status string) (*Task, error) {
	cipher, err := s.contentCipher(ctx, ownerID, requesterID)
	if err != nil {
		return nil, err
	}

	task, err := s.load(ownerID, taskID)
	if err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = description
	if status != "" {
		task.Status = status
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.put(task, cipher, false); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task record.
func (s *Store) Delete(ownerID, taskID string) error {
	if err := s.backend.Delete(taskKey(ownerID, taskID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("tasks: delete: %w", err)
	}
	return nil
}

// contentCipher resolves the owner's content key on behalf of the
// requester and returns the field cipher bound to it.
func (s *Store) contentCipher(ctx context.Context, ownerID, requesterID string) (*symmetric.Cipher, error) {
	rawKey, err := s.keys.RawContentKey(ctx, ownerID, requesterID)
	if err != nil {
		return nil, err
	}
	cipher, err := symmetric.New([]byte(rawKey))
	if err != nil {
		return nil, fmt.Errorf("tasks: content key: %w", err)
	}
	return cipher, nil
}

// put encrypts the sensitive fields and writes the record. The stored
// JSON carries ciphertext only.
func (s *Store) put(task *Task, cipher *symmetric.Cipher, create bool) error {
	record, err := fields.EncryptFields(map[string]string{
		"title":       task.Title,
		"description": task.Description,
	}, cipher)
	if err != nil {
		return fmt.Errorf("tasks: encrypt fields: %w", err)
	}

	stored := *task
	stored.Title = record["title"]
	stored.Description = record["description"]

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("tasks: marshal: %w", err)
	}

	key := taskKey(task.OwnerID, task.ID)
	if create {
		if err := s.backend.PutIfAbsent(key, data, nil); err != nil {
			return fmt.Errorf("tasks: store: %w", err)
		}
		return nil
	}
	if err := s.backend.Put(key, data, nil); err != nil {
		return fmt.Errorf("tasks: store: %w", err)
	}
	return nil
}

func (s *Store) load(ownerID, taskID string) (*Task, error) {
	data, err := s.backend.Get(taskKey(ownerID, taskID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("tasks: load: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("tasks: unmarshal: %w", err)
	}
	return &task, nil
}

func (s *Store) decryptTask(task *Task, cipher *symmetric.Cipher) error {
	record, err := fields.DecryptFields(map[string]string{
		"title":       task.Title,
		"description": task.Description,
	}, cipher, encryptedFields)
	if err != nil {
		return fmt.Errorf("tasks: decrypt fields: %w", err)
	}
	task.Title = record["title"]
	task.Description = record["description"]
	return nil
}

func taskKey(ownerID, taskID string) string {
	return taskPrefix + ownerID + "/" + taskID
}
