package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"

	"github.com/munichmade/hostsctl/internal/hostsfile"
)

// Kind is the category of a rule entry.
type Kind string

const (
	KindBlock    Kind = "block"
	KindAllow    Kind = "allow"
	KindRedirect Kind = "redirect"
)

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindBlock, KindAllow, KindRedirect:
		return k, nil
	default:
		return "", fmt.Errorf("unknown rule kind %q (want block, allow or redirect)", s)
	}
}

// Entry is a single rule. Redirect is set only for KindRedirect.
type Entry struct {
	ID       int64  `json:"id"`
	Host     string `json:"host"`
	Kind     Kind   `json:"kind"`
	Redirect string `json:"redirect,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	if e.Host == "" || strings.ContainsAny(e.Host, " \t\r\n") {
		return fmt.Errorf("host %q must be a single non-empty word", e.Host)
	}

	switch e.Kind {
	case KindAllow:
		// Allow hosts are wildcard patterns, anything non-blank goes
	case KindBlock, KindRedirect:
		if strings.Contains(e.Host, "*") {
			return fmt.Errorf("wildcards are only valid in allow rules: %q", e.Host)
		}
		if _, ok := dns.IsDomainName(e.Host); !ok {
			return fmt.Errorf("%q is not a valid host name", e.Host)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", e.Kind)
	}

	if e.Kind == KindRedirect {
		if net.ParseIP(e.Redirect) == nil {
			return fmt.Errorf("redirect target %q is not an IP address", e.Redirect)
		}
	} else if e.Redirect != "" {
		return fmt.Errorf("only redirect rules carry a target")
	}
	return nil
}

func validateSourceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid source url: %w", err)
	}
	if u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
		return fmt.Errorf("source url %q needs a scheme and host", raw)
	}
	return nil
}

// AddEntry validates and inserts an enabled entry.
func (s *Store) AddEntry(ctx context.Context, e Entry) (Entry, error) {
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	var redirect sql.NullString
	if e.Kind == KindRedirect {
		redirect = sql.NullString{String: e.Redirect, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (host, kind, redirect, enabled) VALUES (?, ?, ?, 1)`,
		e.Host, string(e.Kind), redirect)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	e.Enabled = true
	return e, nil
}

// Entries lists entries of kind in insertion order; an empty kind lists all.
func (s *Store) Entries(ctx context.Context, kind Kind) ([]Entry, error) {
	query := `SELECT id, host, kind, redirect, enabled FROM entries`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	return s.queryEntries(ctx, query, args...)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			kind     string
			redirect sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Host, &kind, &redirect, &e.Enabled); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		e.Redirect = redirect.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetEntryEnabled enables or disables an entry.
func (s *Store) SetEntryEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.execOne(ctx, `UPDATE entries SET enabled = ? WHERE id = ?`, enabled, id)
}

// RemoveEntry deletes an entry.
func (s *Store) RemoveEntry(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM entries WHERE id = ?`, id)
}

func (s *Store) enabledHosts(ctx context.Context, kind Kind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT host FROM entries WHERE kind = ? AND enabled = 1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s hosts: %w", kind, err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan %s host: %w", kind, err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// EnabledBlocked returns the hosts of enabled block entries.
func (s *Store) EnabledBlocked(ctx context.Context) ([]string, error) {
	return s.enabledHosts(ctx, KindBlock)
}

// EnabledAllowed returns the patterns of enabled allow entries.
func (s *Store) EnabledAllowed(ctx context.Context) ([]string, error) {
	return s.enabledHosts(ctx, KindAllow)
}

// EnabledRedirects returns enabled redirect entries.
func (s *Store) EnabledRedirects(ctx context.Context) ([]hostsfile.Redirect, error) {
	entries, err := s.queryEntries(ctx,
		`SELECT id, host, kind, redirect, enabled FROM entries WHERE kind = ? AND enabled = 1 ORDER BY id`,
		string(KindRedirect))
	if err != nil {
		return nil, err
	}
	redirects := make([]hostsfile.Redirect, 0, len(entries))
	for _, e := range entries {
		redirects = append(redirects, hostsfile.Redirect{Host: e.Host, Target: e.Redirect})
	}
	return redirects, nil
}
