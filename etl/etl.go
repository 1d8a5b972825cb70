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


// Package etl runs the catalog and event-log pipelines as one batch job.
package etl

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pilosa/lake"
	"github.com/pilosa/lake/engine"
	"github.com/pilosa/lake/prom"
	"github.com/pilosa/lake/termstat"
	"github.com/pilosa/lake/usecase/catalog"
	"github.com/pilosa/lake/usecase/eventlog"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrNoCredentials is returned when the credentials file lacks either key.
const ErrNoCredentials = lake.Error("credentials file must set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")

// Main holds the options for a run of the job.
type Main struct {
	Input            string `help:"Root location of the song_data and log_data inputs (s3a://bucket/prefix or a local directory)."`
	Output           string `help:"Root location the datasets are written under."`
	Credentials      string `help:"Path to the INI file holding AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY."`
	Region           string `help:"AWS region to use."`
	Endpoint         string `help:"S3 endpoint override for S3 compatible stores."`
	PathStyle        bool   `help:"Use path style S3 addressing."`
	SongPattern      string `help:"Glob under Input matching catalog files."`
	LogPattern       string `help:"Glob under Input matching event log files."`
	PlayAction       string `help:"Value of the page field marking a play event."`
	JoinLeft         string `help:"Event column joined to the catalog."`
	JoinRight        string `help:"Catalog column joined to events."`
	TimeZone         string `help:"IANA time zone event times are broken down in. Empty means the local zone."`
	JoinIndex        string `help:"Join index: memory, bolt or leveldb."`
	GeohashPrecision int    `help:"Add a creator_geohash column of this many characters when positive."`
	StagingDir       string `help:"Directory datasets are written to before publishing. Empty uses a temporary directory."`
	PushGateway      string `help:"Prometheus Pushgateway URL metrics are pushed to when the run ends."`
	Summary          bool   `help:"Print a summary of run statistics when done."`
	Verbose          bool   `help:"Enable debug logging."`

	out io.Writer
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Input:       "s3a://udacity-dend/",
		Output:      "s3a://emr-output-data",
		Credentials: "dl.cfg",
		Region:      "us-west-2",
		SongPattern: catalog.DefaultPattern,
		LogPattern:  eventlog.DefaultPattern,
		PlayAction:  eventlog.DefaultPlayAction,
		JoinLeft:    eventlog.DefaultJoinOn.Left,
		JoinRight:   eventlog.DefaultJoinOn.Right,
		JoinIndex:   engine.IndexMemory,
		Summary:     true,

		out: os.Stderr,
	}
}

// SetOutput sets where the run summary is printed.
func (m *Main) SetOutput(w io.Writer) { m.out = w }

// Run loads credentials, builds the engine and runs both pipelines. The
// first failure aborts the run.
func (m *Main) Run() error {
	start := time.Now()
	ctx := context.Background()

	log, err := lake.NewZapLogger(m.Verbose)
	if err != nil {
		return errors.Wrap(err, "getting logger")
	}
	defer func() { _ = log.Sync() }()

	creds, err := LoadCredentials(m.Credentials)
	if err != nil {
		return errors.Wrap(err, "loading credentials")
	}
	loc, err := m.location()
	if err != nil {
		return err
	}

	ps := prom.NewStatter("lake", log)
	stats := lake.Statters{ps}
	var summary *termstat.Collector
	if m.Summary && m.out != nil {
		summary = termstat.NewCollector(m.out)
		stats = append(stats, summary)
	}

	eng, err := engine.New(engine.Config{
		Credentials: creds,
		Region:      m.Region,
		Endpoint:    m.Endpoint,
		PathStyle:   m.PathStyle,
		StagingDir:  m.StagingDir,
		JoinIndex:   m.JoinIndex,
		Log:         log,
		Stats:       stats,
	})
	if err != nil {
		return errors.Wrap(err, "creating engine")
	}
	defer eng.Close()

	songs := catalog.Config{
		Input:            m.Input,
		Pattern:          m.SongPattern,
		Output:           m.Output,
		GeohashPrecision: m.GeohashPrecision,
	}
	if err := catalog.Process(ctx, eng, songs); err != nil {
		return errors.Wrap(err, "processing catalog")
	}
	err = eventlog.Process(ctx, eng, eventlog.Config{
		Input:      m.Input,
		Pattern:    m.LogPattern,
		Output:     m.Output,
		Catalog:    songs,
		PlayAction: m.PlayAction,
		Location:   loc,
		JoinOn:     lake.JoinKey{Left: m.JoinLeft, Right: m.JoinRight},
	})
	if err != nil {
		return errors.Wrap(err, "processing event log")
	}
	stats.Timing("run", time.Since(start))

	if m.PushGateway != "" {
		if err := ps.Push(ctx, m.PushGateway, "lake_etl"); err != nil {
			return errors.Wrap(err, "pushing metrics")
		}
	}
	if summary != nil {
		if err := summary.Write(); err != nil {
			return errors.Wrap(err, "printing summary")
		}
	}
	log.Printf("done in %v", time.Since(start))
	return nil
}

func (m *Main) location() (*time.Location, error) {
	if m.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(m.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading time zone %q", m.TimeZone)
	}
	return loc, nil
}

// LoadCredentials reads the access key pair from the INI file at path. The
// keys may be at the top level or inside any section. When several sections
// hold an access key, the top level wins, then [AWS], then the remaining
// sections in name order. Both keys are taken from the same section.
func LoadCredentials(path string) (engine.Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return engine.Credentials{}, errors.Wrapf(err, "reading %s", path)
	}
	for _, section := range credentialSections(v) {
		creds := engine.Credentials{
			AccessKeyID:     strings.TrimSpace(v.GetString(section + accessKey)),
			SecretAccessKey: strings.TrimSpace(v.GetString(section + secretKey)),
		}
		if creds.AccessKeyID == "" {
			continue
		}
		if creds.SecretAccessKey == "" {
			return engine.Credentials{}, errors.Wrapf(ErrNoCredentials, "%s: section %q", path, strings.TrimSuffix(section, "."))
		}
		return creds, nil
	}
	return engine.Credentials{}, errors.Wrap(ErrNoCredentials, path)
}

const (
	accessKey = "aws_access_key_id"
	secretKey = "aws_secret_access_key"
)

// credentialSections returns the key prefixes holding an access key, in
// precedence order. Top level keys have no prefix or the ini default
// section's.
func credentialSections(v *viper.Viper) []string {
	rank := func(section string) int {
		switch section {
		case "":
			return 0
		case "default.":
			return 1
		case "aws.":
			return 2
		}
		return 3
	}
	var sections []string
	for _, k := range v.AllKeys() {
		k = strings.ToLower(k)
		if k == accessKey || strings.HasSuffix(k, "."+accessKey) {
			sections = append(sections, strings.TrimSuffix(k, accessKey))
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		ri, rj := rank(sections[i]), rank(sections[j])
		if ri != rj {
			return ri < rj
		}
		return sections[i] < sections[j]
	})
	return sections
}
