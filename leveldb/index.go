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

// Package leveldb provides a lake.Index stored in a LevelDB directory.
package leveldb

import (
	"encoding/binary"
	"os"
	"sync/atomic"

	"github.com/pilosa/lake"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ lake.Index = &Index{}

// Index is a lake.Index in LevelDB. Each row is stored under its join key, a
// zero byte, and a big endian sequence number, so a prefix scan of a key
// yields its rows in insertion order.
type Index struct {
	db      *leveldb.DB
	dirname string
	codec   *lake.RowCodec
	seq     *uint64
}

// NewIndex opens an empty LevelDB in dirname, removing anything already there.
func NewIndex(dirname string, schema lake.Schema) (*Index, error) {
	codec, err := lake.NewRowCodec(schema)
	if err != nil {
		return nil, errors.Wrap(err, "making row codec")
	}
	if err := os.RemoveAll(dirname); err != nil {
		return nil, errors.Wrap(err, "clearing directory")
	}
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	var initialSeq uint64
	idx := &Index{
		dirname: dirname,
		codec:   codec,
		seq:     &initialSeq,
	}
	idx.db, err = leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return idx, nil
}

func prefix(key []byte) []byte {
	p := make([]byte, len(key)+1)
	copy(p, key)
	return p
}

// Add stores r under key.
func (idx *Index) Add(key []byte, r lake.Row) error {
	k := make([]byte, len(key)+1, len(key)+9)
	copy(k, key)
	k = k[:len(key)+9]
	binary.BigEndian.PutUint64(k[len(key)+1:], atomic.AddUint64(idx.seq, 1)-1)
	val, err := idx.codec.Encode(nil, r)
	if err != nil {
		return err
	}
	return errors.Wrap(idx.db.Put(k, val, &opt.WriteOptions{}), "putting row")
}

// Lookup returns every row added under key.
func (idx *Index) Lookup(key []byte) ([]lake.Row, error) {
	iter := idx.db.NewIterator(util.BytesPrefix(prefix(key)), nil)
	defer iter.Release()
	var rows []lake.Row
	for iter.Next() {
		r, err := idx.codec.Decode(iter.Value())
		if err != nil {
			return nil, errors.Wrap(err, "decoding row")
		}
		rows = append(rows, r)
	}
	return rows, errors.Wrap(iter.Error(), "iterating")
}

// Close closes the database and removes its directory.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return errors.Wrap(err, "closing leveldb")
	}
	return errors.Wrap(os.RemoveAll(idx.dirname), "removing leveldb")
}
