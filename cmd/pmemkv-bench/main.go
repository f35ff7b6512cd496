// Command pmemkv-bench exercises the public kv contract end to end — open,
// a batch of puts, a full scan, a batch of removes, close — the same role
// the teacher's cmd/benchmark plays for its own protocol surfaces. It is
// not a CLI product surface (spec.md Non-goals); it exists only to drive
// pkg/kv under something closer to real load than a unit test would.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/krzycz/pmemkv/pkg/config"
	"github.com/krzycz/pmemkv/pkg/kv"
)

func main() {
	dir := flag.String("dir", "", "directory to create the pool file in (defaults to a temp dir)")
	n := flag.Int("n", 100000, "number of keys to put, then remove")
	sizeMB := flag.Uint64("size-mb", 256, "pool size in megabytes")
	flag.Parse()

	poolDir := *dir
	if poolDir == "" {
		var err error
		poolDir, err = os.MkdirTemp("", "pmemkv-bench-")
		if err != nil {
			log.Fatalf("mkdir temp: %v", err)
		}
		defer os.RemoveAll(poolDir)
	}
	path := filepath.Join(poolDir, "bench.pool")

	cfg := config.New()
	cfg.PutString("path", path)
	cfg.PutUint64("size", *sizeMB<<20)
	cfg.PutInt64("force_create", 1)

	db, err := kv.Open("sorted", cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer db.Close()

	fmt.Printf("pmemkv-bench: n=%d pool=%s\n", *n, path)

	start := time.Now()
	for i := 0; i < *n; i++ {
		key := []byte(strconv.Itoa(i))
		if err := db.Put(key, key); err != nil {
			log.Fatalf("put %d: %v", i, err)
		}
	}
	putDuration := time.Since(start)
	fmt.Printf("put:    %v total, %.0f ops/s\n", putDuration, float64(*n)/putDuration.Seconds())

	start = time.Now()
	scanned := 0
	err = db.GetAll(func(k, v []byte) int {
		scanned++
		return 0
	})
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	fmt.Printf("scan:   %v total, %d entries\n", time.Since(start), scanned)

	start = time.Now()
	for i := 0; i < *n; i++ {
		key := []byte(strconv.Itoa(i))
		if err := db.Remove(key); err != nil {
			log.Fatalf("remove %d: %v", i, err)
		}
	}
	removeDuration := time.Since(start)
	fmt.Printf("remove: %v total, %.0f ops/s\n", removeDuration, float64(*n)/removeDuration.Seconds())
}
