package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionSyncMessage(t *testing.T) {
	msg := NewTransactionSyncMessage(12345, 2)

	if msg.ID != 12345 {
		t.Errorf("ID = %v, want 12345", msg.ID)
	}
	if msg.Version != 2 {
		t.Errorf("Version = %v, want 2", msg.Version)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestTransactionSyncMessageJSON(t *testing.T) {
	timestamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionSyncMessage{
		ID:        12345,
		Version:   2,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TransactionSyncMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionSyncMessageFromJSON() error = %v", err)
	}

	if parsed.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsed.ID, msg.ID)
	}
	if parsed.Version != msg.Version {
		t.Errorf("Parsed Version = %v, want %v", parsed.Version, msg.Version)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestTransactionSyncMessageInvalidJSON(t *testing.T) {
	_, err := TransactionSyncMessageFromJSON([]byte(`{"id": "not_a_number", "version": 1}`))
	if err == nil {
		t.Error("TransactionSyncMessageFromJSON() should fail with invalid JSON")
	}
}
