package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/convomarkapp/convomark-host/internal/errors"
)

// Stats summarizes store contents and quota headroom. Callers use
// BytesAvailable as an early warning to surface quota pressure to the
// user before writes start failing.
type Stats struct {
	Annotations        int   `json:"annotations"`
	MessageAnnotations int   `json:"message_annotations"`
	Reminders          int   `json:"reminders"`
	Labels             int   `json:"labels"`
	BytesInUse         int64 `json:"bytes_in_use"`
	BytesAvailable     int64 `json:"bytes_available"`
	CapacityBytes      int64 `json:"capacity_bytes"`
}

// Stats returns record counts and estimated byte usage.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &Stats{CapacityBytes: s.capacity}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case hasPrefix(key, annotationPrefix):
				st.Annotations++
			case hasPrefix(key, msgAnnotationPrefix):
				st.MessageAnnotations++
			case hasPrefix(key, reminderPrefix):
				st.Reminders++
			case hasPrefix(key, labelPrefix):
				st.Labels++
			}

			st.BytesInUse += item.EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.capacity > 0 {
		st.BytesAvailable = max(s.capacity-st.BytesInUse, 0)
	}
	return st, nil
}

// bytesInUse estimates current logical usage for quota checks.
func (s *Store) bytesInUse() (int64, error) {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			total += it.Item().EstimatedSize()
		}
		return nil
	})
	return total, err
}

// checkQuota rejects a write of the given size if it would push usage past
// the capacity ceiling. Previously stored records stay readable unchanged.
func (s *Store) checkQuota(writeSize int64) error {
	if s.capacity <= 0 {
		return nil
	}

	used, err := s.bytesInUse()
	if err != nil {
		return err
	}
	if used+writeSize > s.capacity {
		return errors.ErrQuotaExceeded.WithDetails(map[string]int64{
			"bytes_in_use": used,
			"write_size":   writeSize,
			"capacity":     s.capacity,
		})
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
