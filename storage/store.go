package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"unisoncomms/models"
)

// StoredRecord is the on-disk envelope for one message: plaintext routing
// metadata plus the AES-GCM ciphertext of the normalized message JSON.
type StoredRecord struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Channel  string    `json:"channel"`
	StoredAt time.Time `json:"stored_at"`
	Payload  []byte    `json:"payload"` // ciphertext, never plaintext
}

// LocalEncryptedStore persists on-device channel messages to a single
// encrypted file, one JSON record per line in append order. It owns the file
// exclusively; messages are decrypted only in memory per read.
type LocalEncryptedStore struct {
	path    string
	crypter Crypter
	mu      sync.RWMutex
}

// NewLocalEncryptedStore opens (or creates) the store file. If the file
// already has records, every payload is decrypted once up front so that a
// wrong or rotated key fails here instead of surfacing mid-request.
func NewLocalEncryptedStore(path string, crypter Crypter) (*LocalEncryptedStore, error) {
	if crypter == nil {
		return nil, fmt.Errorf("store requires a crypter")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %v", err)
	}

	s := &LocalEncryptedStore{
		path:    path,
		crypter: crypter,
	}

	records, err := s.loadRecords()
	if err != nil {
		return nil, fmt.Errorf("store file unreadable: %v", err)
	}
	for _, rec := range records {
		if _, err := crypter.Decrypt(rec.Payload); err != nil {
			return nil, fmt.Errorf("store record %s undecryptable (wrong key or corrupt file): %v", rec.ID, err)
		}
	}

	return s, nil
}

// Append encrypts and durably persists one message. Writes are serialized;
// the record is on disk before Append returns.
func (s *LocalEncryptedStore) Append(msg models.NormalizedMessage) error {
	plaintext, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %v", err)
	}

	ciphertext, err := s.crypter.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt message: %v", err)
	}

	rec := StoredRecord{
		ID:       msg.ID,
		ThreadID: msg.ThreadID,
		Channel:  msg.Channel,
		StoredAt: time.Now().UTC(),
		Payload:  ciphertext,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open store file: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %v", err)
	}
	return f.Sync()
}

// ReadAll returns the decrypted messages for a channel in append order.
// Reads proceed concurrently with each other.
func (s *LocalEncryptedStore) ReadAll(channel string) ([]models.NormalizedMessage, error) {
	s.mu.RLock()
	records, err := s.loadRecords()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	messages := make([]models.NormalizedMessage, 0, len(records))
	for _, rec := range records {
		if channel != "" && rec.Channel != channel {
			continue
		}

		plaintext, err := s.crypter.Decrypt(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt record %s: %v", rec.ID, err)
		}

		var msg models.NormalizedMessage
		if err := json.Unmarshal(plaintext, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %v", rec.ID, err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// loadRecords reads the raw record envelopes without decrypting payloads.
func (s *LocalEncryptedStore) loadRecords() ([]StoredRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open store file: %v", err)
	}
	defer f.Close()

	var records []StoredRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec StoredRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt store record: %v", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store file: %v", err)
	}

	return records, nil
}
