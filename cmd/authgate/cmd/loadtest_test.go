package cmd

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}

	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if got := percentile(samples, 99); got != 99*time.Millisecond {
		t.Fatalf("p99 = %s", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100 = %s", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty p50 = %s", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	n := 0
	stats := runPhase(50, 1, 1, func(*rand.Rand) error {
		n++
		if n%5 == 0 {
			return errors.New("fail")
		}
		return nil
	})

	if stats.ops != 50 || stats.failures != 10 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !strings.HasPrefix(formatStats("x", stats), "x: ops=50 failures=10") {
		t.Fatalf("unexpected format %q", formatStats("x", stats))
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "migrate": false, "user": false, "loadtest": false, "env": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
}
