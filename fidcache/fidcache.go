// fidcache.go - BoltDB backed forum id cache.
// Copyright (C) 2017  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package fidcache implements a persistent forum name to forum id cache
// with a boltdb backend.
package fidcache

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	metadataBucket = "metadata"
	fidsBucket     = "fids"
	versionKey     = "version"

	openTimeout = time.Second
)

// Cache is a forum id cache backed by a bolt database. Lookups are served
// from memory; writes go to both.
type Cache struct {
	sync.RWMutex

	db   *bolt.DB
	fids map[string]uint64
}

// Fid returns the cached id of fname.
func (c *Cache) Fid(fname string) (uint64, bool) {
	c.RLock()
	defer c.RUnlock()
	fid, ok := c.fids[fname]
	return fid, ok
}

// PutFid records the id of fname.
func (c *Cache) PutFid(fname string, fid uint64) error {
	if fname == "" || fid == 0 {
		return fmt.Errorf("fidcache: invalid entry %q=%d", fname, fid)
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], fid)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(fidsBucket)).Put([]byte(fname), v[:])
	})
	if err == nil {
		c.Lock()
		c.fids[fname] = fid
		c.Unlock()
	}
	return err
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.fids)
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	c.db.Sync()
	return c.db.Close()
}

// New creates (or loads) a cache database with the given file name f.
func New(f string) (*Cache, error) {
	db, err := bolt.Open(f, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}
	c := &Cache{
		db:   db,
		fids: make(map[string]uint64),
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		fBkt, err := tx.CreateBucketIfNotExists([]byte(fidsBucket))
		if err != nil {
			return err
		}

		if b := bkt.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != 0 {
				return fmt.Errorf("fidcache: incompatible version: %d", uint(b[0]))
			}
			return fBkt.ForEach(func(k, v []byte) error {
				if len(v) != 8 {
					return fmt.Errorf("fidcache: corrupt entry for %q", k)
				}
				c.fids[string(k)] = binary.BigEndian.Uint64(v)
				return nil
			})
		}

		return bkt.Put([]byte(versionKey), []byte{0})
	}); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}
