package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/convomarkapp/convomark-host/internal/domain"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/ConvoMark")
	}
	dbPath := filepath.Join(dataPath, "db")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Store Inspection ===")
	fmt.Println()

	byOrigin := map[domain.Origin]int{}
	annotationCount := 0
	withNotes := 0

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("annotation:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a domain.Annotation
				if err := json.Unmarshal(val, &a); err != nil {
					return err
				}
				annotationCount++
				byOrigin[a.Origin]++
				if a.Note != "" {
					withNotes++
				}
				return nil
			})
			if err != nil {
				fmt.Printf("  unreadable record %s: %v\n", it.Item().Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("Annotations: %d (%d with notes)\n", annotationCount, withNotes)
	for origin, n := range byOrigin {
		fmt.Printf("  %-16s %d\n", origin, n)
	}
	fmt.Println()

	fmt.Printf("Message annotations: %d\n", countPrefix(db, "msg-annotation:"))
	fmt.Printf("Labels:              %d\n", countPrefix(db, "label:"))
	fmt.Println()

	// Reminders get a full listing since there are rarely many.
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("reminder:")
		it := txn.NewIterator(opts)
		defer it.Close()

		active, consumed := 0, 0
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			_ = it.Item().Value(func(val []byte) error {
				var r domain.Reminder
				if err := json.Unmarshal(val, &r); err != nil {
					return nil
				}
				state := "consumed"
				if r.Active {
					state = "active"
					active++
					if r.FireAt.Before(time.Now()) {
						state = "overdue"
					}
				} else {
					consumed++
				}
				fmt.Printf("  %s  %-8s  fires %s  -> %s\n",
					r.ID, state, r.FireAt.Format(time.RFC3339), r.AnnotationID)
				return nil
			})
		}
		fmt.Printf("Reminders: %d active, %d consumed\n", active, consumed)
		return nil
	})
	if err != nil {
		log.Fatalf("Reminder scan failed: %v", err)
	}

	lsm, vlog := db.Size()
	fmt.Println()
	fmt.Printf("On-disk size: %d bytes (lsm %d, vlog %d)\n", lsm+vlog, lsm, vlog)
}

func countPrefix(db *badger.DB, prefix string) int {
	count := 0
	_ = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}
