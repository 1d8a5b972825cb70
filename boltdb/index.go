// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package boltdb provides a lake.Index stored in a bolt database file, for
// joins whose build side is too large to keep in memory.
package boltdb

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

var _ lake.Index = &Index{}

// Index is a lake.Index which keeps one bucket per join key. Rows are stored
// Avro encoded under the bucket's sequence numbers, so iteration order is
// insertion order.
type Index struct {
	Db       *bolt.DB
	filename string
	codec    *lake.RowCodec
	buf      []byte
}

// NewIndex creates (or truncates) the bolt file at filename for rows laid out
// like schema.
func NewIndex(filename string, schema lake.Schema) (*Index, error) {
	codec, err := lake.NewRowCodec(schema)
	if err != nil {
		return nil, errors.Wrap(err, "making row codec")
	}
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "removing old index '%v'", filename)
	}
	idx := &Index{filename: filename, codec: codec}
	idx.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second, InitialMmapSize: 50000000, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	// the file is scratch space for a single run
	idx.Db.NoSync = true
	return idx, nil
}

// Add stores r under key.
func (idx *Index) Add(key []byte, r lake.Row) error {
	var err error
	idx.buf, err = idx.codec.Encode(idx.buf[:0], r)
	if err != nil {
		return err
	}
	return idx.Db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(key)
		if err != nil {
			return errors.Wrap(err, "creating key bucket")
		}
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "getting sequence")
		}
		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, seq)
		return errors.Wrap(b.Put(seqBytes, idx.buf), "putting row")
	})
}

// Lookup returns every row added under key.
func (idx *Index) Lookup(key []byte) (rows []lake.Row, err error) {
	err = idx.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(key)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			r, err := idx.codec.Decode(v)
			if err != nil {
				return errors.Wrapf(err, "row %d", binary.BigEndian.Uint64(k))
			}
			rows = append(rows, r)
			return nil
		})
	})
	return rows, err
}

// Close closes the database and removes its file.
func (idx *Index) Close() error {
	if err := idx.Db.Close(); err != nil {
		return errors.Wrap(err, "closing db")
	}
	return errors.Wrap(os.Remove(idx.filename), "removing db file")
}
