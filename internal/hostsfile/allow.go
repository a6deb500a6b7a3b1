package hostsfile

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest slice of hosts handed to one filter worker.
const minChunk = 2048

// Matcher tests hosts against compiled allow-list patterns.
// It is immutable after Compile and safe for concurrent use.
type Matcher struct {
	patterns []*regexp.Regexp
}

// Compile turns allow-list wildcard patterns into a Matcher. A '*' matches any
// run of characters; everything else is literal. Patterns are unanchored.
func Compile(allowed []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]*regexp.Regexp, 0, len(allowed))}
	for _, pattern := range allowed {
		re, err := regexp.Compile(wildcardToRegexp(pattern))
		if err != nil {
			return nil, fmt.Errorf("compile allow pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

func wildcardToRegexp(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, ".*")
}

// IsAllowed reports whether any pattern matches somewhere in host.
func (m *Matcher) IsAllowed(host string) bool {
	for _, re := range m.patterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Filter returns the hosts that no pattern allows, in input order. Large
// inputs are split into chunks tested concurrently.
func (m *Matcher) Filter(ctx context.Context, hosts []string) ([]string, error) {
	if len(m.patterns) == 0 {
		return hosts, nil
	}

	workers := runtime.GOMAXPROCS(0)
	chunkSize := (len(hosts) + workers - 1) / workers
	if chunkSize < minChunk {
		chunkSize = minChunk
	}

	var chunks [][]string
	for start := 0; start < len(hosts); start += chunkSize {
		end := min(start+chunkSize, len(hosts))
		chunks = append(chunks, hosts[start:end])
	}

	results := make([][]string, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			kept := make([]string, 0, len(chunk))
			for _, host := range chunk {
				if !m.IsAllowed(host) {
					kept = append(kept, host)
				}
			}
			results[i] = kept
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	blocked := make([]string, 0, total)
	for _, r := range results {
		blocked = append(blocked, r...)
	}
	return blocked, nil
}
