// Copyright 2025 The dirkv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)

// receive reads from a waiter channel with a real-time timeout so a broken
// clock cannot hang the test.
func receive(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timeout waiting on clock channel")
		return time.Time{}
	}
}

func TestSimulatedClock_NowFollowsSetAndAdvance(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(sc *SimulatedClock)
		want  time.Time
	}{
		{"FreshClock", func(sc *SimulatedClock) {}, start},
		{"SetTime", func(sc *SimulatedClock) { sc.SetTime(start.Add(time.Minute)) }, start.Add(time.Minute)},
		{"AdvanceTime", func(sc *SimulatedClock) { sc.AdvanceTime(time.Hour) }, start.Add(time.Hour)},
		{"SetBackwards", func(sc *SimulatedClock) { sc.SetTime(start.Add(-time.Hour)) }, start.Add(-time.Hour)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sc := NewSimulatedClock(start)

			tc.setup(sc)

			assert.True(t, tc.want.Equal(sc.Now()))
		})
	}
}

func TestSimulatedClock_AfterFiresAtDeadline(t *testing.T) {
	sc := NewSimulatedClock(start)
	ch := sc.After(time.Minute)

	sc.AdvanceTime(2 * time.Minute)

	got := receive(t, ch)
	assert.True(t, start.Add(time.Minute).Equal(got))
}

func TestSimulatedClock_AfterPendingUntilDue(t *testing.T) {
	sc := NewSimulatedClock(start)
	ch := sc.After(time.Minute)

	sc.AdvanceTime(30 * time.Second)

	select {
	case got := <-ch:
		t.Fatalf("waiter fired early with %v", got)
	case <-time.After(10 * time.Millisecond):
	}

	sc.AdvanceTime(30 * time.Second)
	receive(t, ch)
}

func TestSimulatedClock_AfterNonPositiveFiresImmediately(t *testing.T) {
	sc := NewSimulatedClock(start)

	got := receive(t, sc.After(0))

	assert.True(t, start.Equal(got))
}

func TestSimulatedClock_MultipleWaiters(t *testing.T) {
	sc := NewSimulatedClock(start)
	early := sc.After(time.Second)
	late := sc.After(time.Hour)

	sc.AdvanceTime(time.Minute)

	require.True(t, start.Add(time.Second).Equal(receive(t, early)))
	select {
	case <-late:
		t.Fatal("late waiter fired with the early one")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestRealClock_NowAdvances(t *testing.T) {
	c := RealClock{}

	a := c.Now()
	b := c.Now()

	assert.False(t, b.Before(a))
}
