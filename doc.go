// Package lake reshapes raw JSON catalog and event-log records into a small
// set of denormalized analytical tables and writes them back out as
// Hive-partitioned Parquet datasets.
//
// A run is a fixed, linear sequence of stages. Every stage is written against
// the interfaces in this package so that the concrete storage backends (local
// files, S3) and join indexes (memory, BoltDB, LevelDB) can be swapped without
// touching the transformation logic.
//
// 1. RawSource
//
//    A lake.RawSource hands out one named reader per input object, in the same
//    way for a directory on disk (package file) as for a bucket prefix in S3
//    (package aws/s3). Objects are selected with a glob pattern relative to an
//    input root. Sources do not look inside the data they return.
//
// 2. RecordSchema
//
//    Every input dataset has an explicit RecordSchema: a Go struct with json
//    tags plus the typed column list it converts into. Package json decodes
//    each object against the schema and fails fast with a *SchemaError when a
//    field has the wrong type or a required field is missing. Nothing is
//    inferred from the data.
//
// 3. Table
//
//    Decoded records become a Table, a small in-memory row store with the
//    handful of set-oriented operations the pipelines need: Where, Select,
//    WithColumn, Distinct, Sort and an inner equi-Join whose build side lives
//    in an Index.
//
// 4. Engine
//
//    The Engine ties the pieces together. Read turns an Input into a Table and
//    Write stages a Table as partitioned Parquet files before a Store replaces
//    whatever was at the destination. See package engine for the
//    implementation used by the command line.
package lake
