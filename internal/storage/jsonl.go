package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solarpool/internal/model"
)

// JsonlStorage writes swap receipts to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutReceiptBatch appends a batch of receipts as JSON lines.
func (s *JsonlStorage) PutReceiptBatch(receipts []model.SwapReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range receipts {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal receipt: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write receipt: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// ReadReceipts loads every receipt from a JSONL file. Blank lines are skipped.
func ReadReceipts(path string) ([]model.SwapReceipt, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open receipts: %w", err)
	}
	defer file.Close()

	var receipts []model.SwapReceipt
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r model.SwapReceipt
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode receipt line %d: %w", line, err)
		}
		receipts = append(receipts, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan receipts: %w", err)
	}
	return receipts, nil
}
