// Package engine bootstraps the execution handle the pipelines run on. It
// resolves dataset locations to the local filesystem or S3 and owns the
// staging area datasets are written to before they are published.
package engine

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pilosa/lake"
	"github.com/pilosa/lake/aws/s3"
	"github.com/pilosa/lake/boltdb"
	"github.com/pilosa/lake/file"
	"github.com/pilosa/lake/json"
	"github.com/pilosa/lake/leveldb"
	"github.com/pilosa/lake/parquet"
	"github.com/pkg/errors"
)

// Join index kinds.
const (
	IndexMemory  = "memory"
	IndexBolt    = "bolt"
	IndexLevelDB = "leveldb"
)

// Credentials are the static object storage keys for a run.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Empty reports whether no keys were given.
func (c Credentials) Empty() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// Config configures New.
type Config struct {
	// Credentials are used for every S3 request. When empty the AWS default
	// credential chain applies.
	Credentials Credentials
	Region      string
	// Endpoint overrides the S3 endpoint, for S3 compatible stores.
	Endpoint  string
	PathStyle bool

	// StagingDir is where datasets are written before being published. A
	// temporary directory is used if it is empty.
	StagingDir string
	// JoinIndex is one of IndexMemory (the default), IndexBolt or
	// IndexLevelDB.
	JoinIndex string

	Log   lake.Logger
	Stats lake.Statter

	// S3 and Uploader replace the clients built from the session.
	S3       s3iface.S3API
	Uploader s3manageriface.UploaderAPI
}

// Engine implements lake.Engine.
type Engine struct {
	cfg     Config
	log     lake.Logger
	stats   lake.Statter
	staging string
	ownDir  bool

	s3       s3iface.S3API
	uploader s3manageriface.UploaderAPI

	writer  *parquet.Writer
	files   *file.Store
	objects *s3.Store

	n int
}

var _ lake.Engine = &Engine{}

// New validates cfg and returns a ready Engine. The caller must Close it.
func New(cfg Config) (*Engine, error) {
	e := &Engine{
		cfg:   cfg,
		log:   cfg.Log,
		stats: cfg.Stats,
	}
	if e.log == nil {
		e.log = lake.NopLogger{}
	}
	if e.stats == nil {
		e.stats = lake.NopStatter{}
	}
	switch cfg.JoinIndex {
	case "":
		e.cfg.JoinIndex = IndexMemory
	case IndexMemory, IndexBolt, IndexLevelDB:
	default:
		return nil, errors.Errorf("unknown join index %q, must be one of %s, %s, %s", cfg.JoinIndex, IndexMemory, IndexBolt, IndexLevelDB)
	}

	e.s3, e.uploader = cfg.S3, cfg.Uploader
	if e.s3 == nil || e.uploader == nil {
		awsCfg := &aws.Config{
			S3ForcePathStyle: aws.Bool(cfg.PathStyle),
		}
		if cfg.Region != "" {
			awsCfg.Region = aws.String(cfg.Region)
		}
		if cfg.Endpoint != "" {
			awsCfg.Endpoint = aws.String(cfg.Endpoint)
		}
		if !cfg.Credentials.Empty() {
			awsCfg.Credentials = credentials.NewStaticCredentials(cfg.Credentials.AccessKeyID, cfg.Credentials.SecretAccessKey, "")
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, errors.Wrap(err, "getting aws session")
		}
		if e.s3 == nil {
			e.s3 = awss3.New(sess)
		}
		if e.uploader == nil {
			e.uploader = s3manager.NewUploaderWithClient(e.s3)
		}
	}

	if cfg.StagingDir == "" {
		dir, err := ioutil.TempDir("", "lake-staging")
		if err != nil {
			return nil, errors.Wrap(err, "making staging directory")
		}
		e.staging, e.ownDir = dir, true
	} else {
		if err := os.MkdirAll(cfg.StagingDir, 0755); err != nil {
			return nil, errors.Wrap(err, "making staging directory")
		}
		e.staging = cfg.StagingDir
	}

	e.writer = parquet.NewWriter(e.log)
	e.files = file.NewStore(e.log)
	e.objects = s3.NewStore(e.s3, e.uploader, e.log)
	e.log.Debugf("engine ready: staging=%s join-index=%s region=%s", e.staging, e.cfg.JoinIndex, cfg.Region)
	return e, nil
}

// Log returns the engine's logger.
func (e *Engine) Log() lake.Logger { return e.log }

// Stats returns the engine's statter.
func (e *Engine) Stats() lake.Statter { return e.stats }

// StagingDir returns the directory datasets are staged in.
func (e *Engine) StagingDir() string { return e.staging }

func (e *Engine) rawSource(ctx context.Context, path, pattern string) (lake.RawSource, error) {
	loc, err := lake.ParseLocation(path)
	if err != nil {
		return nil, err
	}
	if loc.IsS3() {
		return s3.NewRawSource(e.s3, loc.Bucket, loc.Key, s3.OptSrcPattern(pattern), s3.OptSrcContext(ctx))
	}
	return file.NewRawSource(loc.Key, pattern)
}

// Read decodes every object matching in into a table.
func (e *Engine) Read(ctx context.Context, in lake.Input) (*lake.Table, error) {
	start := time.Now()
	rs, err := e.rawSource(ctx, in.Path, in.Pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", lake.JoinPath(in.Path, in.Pattern))
	}
	crs := &lake.CountingRawSource{RawSource: rs}
	tbl, err := json.ReadTable(crs, in.Schema)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", in.Schema.Name)
	}
	tag := "dataset:" + in.Schema.Name
	e.stats.Count("objects_read", int64(crs.Objects()), tag)
	e.stats.Count("bytes_read", int64(crs.Bytes()), tag)
	e.stats.Count("rows_read", int64(tbl.Len()), tag)
	e.stats.Timing("read", time.Since(start), tag)
	e.log.Printf("read %d %s records from %d objects (%v) under %s", tbl.Len(), in.Schema.Name, crs.Objects(), crs.Bytes(), in.Path)
	if crs.Objects() == 0 {
		e.log.Printf("warning: no objects matched %s", lake.JoinPath(in.Path, in.Pattern))
	}
	return tbl, nil
}

// Write stages t as a Parquet dataset and then replaces everything at
// out.Path with it.
func (e *Engine) Write(ctx context.Context, t *lake.Table, out lake.Output) error {
	start := time.Now()
	loc, err := lake.ParseLocation(out.Path)
	if err != nil {
		return errors.Wrapf(err, "writing %s", t.Name)
	}
	e.n++
	dir := filepath.Join(e.staging, fmt.Sprintf("%03d-%s", e.n, sanitize(t.Name)))
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "clearing staging directory")
	}
	defer os.RemoveAll(dir)

	files, err := e.writer.Write(t, dir, out.PartitionBy)
	if err != nil {
		return errors.Wrapf(err, "staging %s", t.Name)
	}
	var store lake.Store = e.files
	if loc.IsS3() {
		store = e.objects
	}
	if err := store.Replace(ctx, out.Path, dir); err != nil {
		return errors.Wrapf(err, "publishing %s", t.Name)
	}
	tag := "table:" + t.Name
	e.stats.Count("rows_written", int64(t.Len()), tag)
	e.stats.Count("files_written", int64(files), tag)
	e.stats.Timing("write", time.Since(start), tag)
	e.log.Printf("wrote %d %s rows in %d files to %s", t.Len(), t.Name, files, out.Path)
	if t.Len() == 0 {
		e.log.Printf("warning: %s is empty", t.Name)
	}
	return nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
}

// Index returns a new join index of the configured kind.
func (e *Engine) Index(schema lake.Schema) (lake.Index, error) {
	e.n++
	name := filepath.Join(e.staging, fmt.Sprintf("%03d-index", e.n))
	switch e.cfg.JoinIndex {
	case IndexBolt:
		idx, err := boltdb.NewIndex(name+".db", schema)
		if err != nil {
			return nil, errors.Wrap(err, "making bolt index")
		}
		return idx, nil
	case IndexLevelDB:
		idx, err := leveldb.NewIndex(name, schema)
		if err != nil {
			return nil, errors.Wrap(err, "making leveldb index")
		}
		return idx, nil
	}
	return lake.NewMapIndex(), nil
}

// Close removes the staging directory if the engine created it.
func (e *Engine) Close() error {
	if !e.ownDir {
		return nil
	}
	return errors.Wrap(os.RemoveAll(e.staging), "removing staging directory")
}
