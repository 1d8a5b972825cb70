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

// Package s3 reads input objects from, and publishes datasets to, Amazon S3.
package s3

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

// deleteBatch is the most keys a single DeleteObjects request accepts.
const deleteBatch = 1000

// SrcOption is a functional option type for s3.RawSource.
type SrcOption func(s *RawSource)

// OptSrcPattern restricts the source to keys matching pattern (path.Match
// syntax, relative to the prefix). With no pattern every object under the
// prefix is read.
func OptSrcPattern(pattern string) SrcOption {
	return func(s *RawSource) {
		s.pattern = pattern
	}
}

// OptSrcContext sets the context used for listing and fetching objects.
func OptSrcContext(ctx context.Context) SrcOption {
	return func(s *RawSource) {
		s.ctx = ctx
	}
}

// RawSource is a lake.RawSource which reads objects from an S3 bucket.
type RawSource struct {
	bucket  string
	prefix  string
	pattern string
	ctx     context.Context

	s3     s3iface.S3API
	keys   []string
	objIdx *uint64
}

// NewRawSource lists the objects under prefix in bucket which match the
// source's pattern. Objects are read in key order.
func NewRawSource(client s3iface.S3API, bucket, prefix string, opts ...SrcOption) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		ctx:    context.Background(),
		s3:     client,
		objIdx: &idx,
	}
	for _, opt := range opts {
		opt(rs)
	}

	full := ""
	if rs.pattern != "" {
		full = path.Join(rs.prefix, rs.pattern)
		// catch malformed patterns before listing
		if _, err := path.Match(full, ""); err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", rs.pattern)
		}
	}
	listPrefix := rs.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	if full != "" {
		listPrefix = literalPrefix(full)
	}

	err := listKeys(rs.ctx, client, bucket, listPrefix, func(key string) error {
		if strings.HasSuffix(key, "/") {
			return nil
		}
		if full != "" {
			ok, err := path.Match(full, key)
			if err != nil || !ok {
				return err
			}
		}
		rs.keys = append(rs.keys, key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing s3://%s/%s", bucket, listPrefix)
	}
	sort.Strings(rs.keys)
	return rs, nil
}

// Keys returns the object keys the source will read, in order.
func (rs *RawSource) Keys() []string { return rs.keys }

// literalPrefix returns the part of pattern before its first metacharacter.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

func listKeys(ctx context.Context, client s3iface.S3API, bucket, prefix string, fn func(key string) error) error {
	var ferr error
	err := client.ListObjectsPagesWithContext(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		for _, obj := range page.Contents {
			if ferr = fn(aws.StringValue(obj.Key)); ferr != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return ferr
}

type objReader struct {
	name string
	io.ReadCloser
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader fetches the next object. Readers are named s3://bucket/key.
func (rs *RawSource) NextReader() (lake.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.keys) {
		return nil, io.EOF
	}
	key := rs.keys[idx]

	result, err := rs.s3.GetObjectWithContext(rs.ctx, &s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", key)
	}
	return &objReader{name: "s3://" + rs.bucket + "/" + key, ReadCloser: result.Body}, nil
}

// Store is a lake.Store which publishes datasets to S3.
type Store struct {
	s3       s3iface.S3API
	uploader s3manageriface.UploaderAPI
	log      lake.Logger
}

// NewStore returns a Store. A nil logger discards output.
func NewStore(client s3iface.S3API, uploader s3manageriface.UploaderAPI, log lake.Logger) *Store {
	if log == nil {
		log = lake.NopLogger{}
	}
	return &Store{s3: client, uploader: uploader, log: log}
}

// Replace deletes every object under the dest prefix and then uploads each
// file staged under dir, keyed by its path relative to dir.
func (s *Store) Replace(ctx context.Context, dest, dir string) error {
	loc, err := lake.ParseLocation(dest)
	if err != nil {
		return errors.Wrap(err, "parsing destination")
	}
	if !loc.IsS3() {
		return errors.Errorf("%s is not an s3 location", dest)
	}
	if loc.Key == "" {
		return errors.Errorf("refusing to replace the whole of bucket %s", loc.Bucket)
	}
	n, err := s.deletePrefix(ctx, loc.Bucket, loc.Key+"/")
	if err != nil {
		return errors.Wrapf(err, "clearing %s", dest)
	}
	s.log.Debugf("deleted %d objects under %s", n, dest)

	n = 0
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(loc.Key, filepath.ToSlash(rel))
		if err := s.upload(ctx, loc.Bucket, key, p); err != nil {
			return errors.Wrapf(err, "uploading %s", key)
		}
		n++
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "publishing %s", dest)
	}
	s.log.Debugf("uploaded %d objects to %s", n, dest)
	return nil
}

func (s *Store) upload(ctx context.Context, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

func (s *Store) deletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	keys := make([]string, 0)
	err := listKeys(ctx, s.s3, bucket, prefix, func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "listing")
	}
	for start := 0; start < len(keys); start += deleteBatch {
		end := start + deleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		objs := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objs = append(objs, &s3.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.s3.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3.Delete{Objects: objs, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return start, errors.Wrap(err, "deleting objects")
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return start, errors.Errorf("deleting %s: %s %s (%d failures)", aws.StringValue(e.Key), aws.StringValue(e.Code), aws.StringValue(e.Message), len(out.Errors))
		}
	}
	return len(keys), nil
}
