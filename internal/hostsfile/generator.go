// Package hostsfile renders the hosts file hostsctl installs and reads back
// its install state.
//
// The rendered layout is consumed by resolvers and by tools that parse the
// header, so its structure is fixed: header comments, a blank line, the
// loopback entries, blocked hosts, then redirects.
package hostsfile

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"time"
)

// Header lines. GeneratedMarker starts the first line of every generated file.
const (
	GeneratedMarker = "# This hosts file has been generated by hostsctl on: "
	EditNotice      = "# Please do not modify it directly, it will be overwritten when hostsctl is applied again."
	SourcesHeader   = "# This file is generated from the following sources:"
)

// Loopback entries present in every file, generated or default.
const (
	LoopbackIPv4     = "127.0.0.1"
	LoopbackIPv6     = "::1"
	LoopbackHostname = "localhost"
)

// TimestampLayout formats the generation time in the first header line.
const TimestampLayout = "2006-01-02 15:04:05"

const lineSeparator = "\n"

// Source is a rule source contributing a provenance comment.
type Source struct {
	URL     string
	Enabled bool
}

// Redirect maps a host to a specific target.
type Redirect struct {
	Host   string
	Target string
}

// Options controls the addresses blocked hosts are redirected to.
type Options struct {
	RedirectIPv4 string
	RedirectIPv6 string
	EnableIPv6   bool
}

// Input is everything a generated file is derived from.
type Input struct {
	Sources     []Source
	Blocked     []string
	Allowed     []string
	Redirects   []Redirect
	Options     Options
	GeneratedAt time.Time
}

// Generate writes the hosts file for in to w. Allowed patterns remove matching
// blocked hosts; redirects are written verbatim and are never filtered.
// Duplicates are kept.
func Generate(ctx context.Context, w io.Writer, in Input) error {
	matcher, err := Compile(in.Allowed)
	if err != nil {
		return err
	}
	blocked, err := matcher.Filter(ctx, in.Blocked)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	line := func(parts ...string) {
		for _, p := range parts {
			bw.WriteString(p)
		}
		bw.WriteString(lineSeparator)
	}

	line(GeneratedMarker, in.GeneratedAt.Format(TimestampLayout))
	line(EditNotice)
	line(SourcesHeader)
	for _, src := range in.Sources {
		if src.Enabled {
			line("# - ", src.URL)
		}
	}
	line()

	writeLoopback(bw)

	for _, host := range blocked {
		line(in.Options.RedirectIPv4, " ", host)
		if in.Options.EnableIPv6 {
			line(in.Options.RedirectIPv6, " ", host)
		}
	}

	for _, r := range in.Redirects {
		line(r.Host, " ", r.Target)
	}

	return bw.Flush()
}

// Render returns the generated file as bytes.
func Render(ctx context.Context, in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := Generate(ctx, &buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultContent returns the minimal hosts file restored on revert.
func DefaultContent() []byte {
	var buf bytes.Buffer
	writeLoopback(&buf)
	return buf.Bytes()
}

func writeLoopback(w io.StringWriter) {
	w.WriteString(LoopbackIPv4 + " " + LoopbackHostname + lineSeparator)
	w.WriteString(LoopbackIPv6 + " " + LoopbackHostname + lineSeparator)
}
