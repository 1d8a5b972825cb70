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

// Package termstat provides a stats implementation which prints a summary of
// a run to the terminal in lieu of an external collector.
package termstat

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Collector collects counts and timings and prints them on demand.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []int64
	timings []time.Duration
	gauges  map[string]float64
	out     io.Writer
}

// NewCollector initializes and returns a new Collector writing to out.
func NewCollector(out io.Writer) *Collector {
	return &Collector{
		indexes: make(map[string]int),
		gauges:  make(map[string]float64),
		out:     out,
	}
}

func statName(name string, tags []string) string {
	if len(tags) == 0 {
		return name
	}
	return name + "{" + strings.Join(tags, ",") + "}"
}

func (t *Collector) index(name string) int {
	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.stats)
		t.stats = append(t.stats, 0)
		t.timings = append(t.timings, 0)
		t.names = append(t.names, name)
		t.indexes[name] = idx
	}
	return idx
}

// Count adds value to the named stat.
func (t *Collector) Count(name string, value int64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stats[t.index(statName(name, tags))] += value
}

// Gauge records the latest value of the named stat.
func (t *Collector) Gauge(name string, value float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	n := statName(name, tags)
	t.index(n)
	t.gauges[n] = value
}

// Timing accumulates the total time of the named stat.
func (t *Collector) Timing(name string, value time.Duration, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.timings[t.index(statName(name, tags))] += value
}

// Write prints one line per stat in the order they were first seen.
func (t *Collector) Write() error {
	sb := strings.Builder{}
	t.lock.Lock()
	for i, name := range t.names {
		switch g, ok := t.gauges[name]; {
		case ok:
			fmt.Fprintf(&sb, "%s: %g\n", name, g)
		case t.timings[i] > 0:
			fmt.Fprintf(&sb, "%s: %v\n", name, t.timings[i].Round(time.Millisecond))
		default:
			fmt.Fprintf(&sb, "%s: %d\n", name, t.stats[i])
		}
	}
	t.lock.Unlock()
	_, err := io.WriteString(t.out, sb.String())
	return err
}
