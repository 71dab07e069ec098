// Package session keeps parsed snapshots of open documents up to date as
// they are edited.
//
// Every edit marks the touched bytes in the document's tracker. The next
// parse first asks the cache, then reuses the leading top-level
// statements of the previous tree that end with ';' before the first
// change, and only parses the rest of the document. Documents with
// heredocs are always parsed from scratch because a body can move with an
// edit far from its declaration.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/yaklabco/perlparse/internal/logging"
	"github.com/yaklabco/perlparse/pkg/cache"
	"github.com/yaklabco/perlparse/pkg/incremental"
	"github.com/yaklabco/perlparse/pkg/parser"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Sentinel errors.
var (
	ErrUnknownDocument = errors.New("document is not open")
	ErrInvalidEdit     = errors.New("edit range outside document")
)

// Edit replaces the bytes [Start, End) of the current content with Text.
// Edits in one Change apply in order, each against the result of the
// previous one.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Info describes an open document.
type Info struct {
	URI     string
	ID      uuid.UUID
	Version int
	Length  int
}

// Stats counts manager activity.
type Stats struct {
	Documents         int
	Parses            int64
	FullParses        int64
	IncrementalParses int64
	CacheHits         int64
	ReusedStatements  int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache replaces the snapshot cache.
func WithCache(c *cache.Cache[*syntax.Snapshot]) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithParserOptions sets the options every parse runs with.
func WithParserOptions(opts ...parser.Option) Option {
	return func(m *Manager) {
		m.parseOpts = append(m.parseOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type document struct {
	mu       sync.Mutex
	uri      string
	id       uuid.UUID
	version  int
	content  string
	snapshot *syntax.Snapshot
	tracker  *incremental.Tracker
}

// Manager owns the open documents. It is safe for concurrent use; edits
// to one document are serialized, different documents proceed in
// parallel.
type Manager struct {
	mu        sync.RWMutex
	docs      map[string]*document
	cache     *cache.Cache[*syntax.Snapshot]
	parseOpts []parser.Option
	logger    *log.Logger

	parses      atomic.Int64
	full        atomic.Int64
	incremental atomic.Int64
	hits        atomic.Int64
	reused      atomic.Int64
}

// NewManager creates a manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		docs:   make(map[string]*document),
		cache:  cache.New[*syntax.Snapshot](),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts tracking uri with the given content, replacing any document
// already open under that uri, and returns its snapshot. The error
// aggregates parse errors; the snapshot is usable either way.
func (m *Manager) Open(uri, content string) (*syntax.Snapshot, error) {
	doc := &document{
		uri:     uri,
		id:      uuid.New(),
		content: content,
		tracker: incremental.New(),
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	m.mu.Lock()
	m.docs[uri] = doc
	m.mu.Unlock()

	snap, err := m.reparse(doc, nil)
	m.logger.Debug("opened document",
		logging.FieldPath, uri,
		logging.FieldSession, doc.id.String(),
		logging.FieldErrors, len(snap.Errors))
	return snap, err
}

func (m *Manager) lookup(uri string) (*document, error) {
	m.mu.RLock()
	doc, ok := m.docs[uri]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}
	return doc, nil
}

// Change applies edits to uri and returns the new snapshot. An edit with
// an out-of-range span rejects the whole change.
func (m *Manager) Change(uri string, edits ...Edit) (*syntax.Snapshot, error) {
	doc, err := m.lookup(uri)
	if err != nil {
		return nil, err
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	content := doc.content
	for i, e := range edits {
		if e.Start < 0 || e.End < e.Start || e.End > len(content) {
			return nil, fmt.Errorf("%s: edit %d [%d,%d) of %d bytes: %w",
				uri, i, e.Start, e.End, len(content), ErrInvalidEdit)
		}
		content = content[:e.Start] + e.Text + content[e.End:]
	}
	for _, e := range edits {
		end := e.Start + len(e.Text)
		if end == e.Start {
			// a deletion dirties the byte at the join
			end++
		}
		doc.tracker.MarkChanged(e.Start, end)
	}

	prev := doc.snapshot
	doc.content = content
	doc.version++
	return m.reparse(doc, prev)
}

// reparse rebuilds doc.snapshot. The document lock must be held.
func (m *Manager) reparse(doc *document, prev *syntax.Snapshot) (*syntax.Snapshot, error) {
	defer doc.tracker.Clear()

	if snap, ok := m.cache.Get(doc.uri, doc.content); ok {
		m.hits.Add(1)
		doc.snapshot = snap
		return snap, combine(snap.Errors)
	}

	m.parses.Add(1)
	snap, err := m.incrementalParse(doc, prev)
	if snap == nil {
		m.full.Add(1)
		snap, err = parser.Parse(doc.uri, doc.content, m.parseOpts...)
	}

	doc.snapshot = snap
	m.cache.Put(doc.uri, doc.content, snap)
	return snap, err
}

// incrementalParse reuses a clean prefix of prev. It returns nil when no
// statement can be reused.
func (m *Manager) incrementalParse(doc *document, prev *syntax.Snapshot) (*syntax.Snapshot, error) {
	if prev == nil || prev.Root == nil || len(prev.Heredocs) > 0 || strings.Contains(doc.content, "<<") {
		return nil, nil
	}
	limit, ok := doc.tracker.FirstChange()
	if !ok {
		return nil, nil
	}
	for _, e := range prev.Errors {
		if e.Span.Start < limit {
			limit = e.Span.Start
		}
	}

	kept, boundary, tokens := reusablePrefix(prev, doc.tracker, limit)
	if kept == 0 {
		return nil, nil
	}

	rest, err := parser.ParseFrom(doc.uri, doc.content, boundary, m.parseOpts...)

	snap := syntax.NewSnapshot(doc.uri, doc.content)
	children := make([]*syntax.Node, 0, kept+len(rest.Root.Children))
	children = append(children, prev.Root.Children[:kept]...)
	children = append(children, rest.Root.Children...)
	snap.Root = syntax.NewNode(syntax.NodeProgram, syntax.Span{Start: 0, End: len(doc.content)}, children...)
	snap.Tokens = append(append(make([]syntax.Token, 0, tokens+len(rest.Tokens)), prev.Tokens[:tokens]...), rest.Tokens...)
	snap.Heredocs = rest.Heredocs
	snap.Errors = rest.Errors

	m.incremental.Add(1)
	m.reused.Add(int64(kept))
	m.logger.Debug("incremental parse",
		logging.FieldPath, doc.uri,
		logging.FieldReused, kept,
		logging.FieldOffset, boundary)
	return snap, err
}

// reusablePrefix counts the leading top-level statements of prev that are
// clean, end with ';' and finish before limit. It returns that count, the
// offset just past the last reused ';' and the number of tokens up to it.
func reusablePrefix(prev *syntax.Snapshot, tracker *incremental.Tracker, limit int) (int, int, int) {
	kept, boundary, tokens := 0, 0, 0
	tok := 0
	for _, stmt := range prev.Root.Children {
		if stmt.Kind == syntax.NodeError || stmt.Span.End > limit || tracker.NeedsReparse(stmt.Span.Start, stmt.Span.End) {
			break
		}
		for tok < len(prev.Tokens) && prev.Tokens[tok].Span.Start < stmt.Span.End {
			tok++
		}
		if tok == len(prev.Tokens) {
			break
		}
		semi := prev.Tokens[tok]
		if !semi.IsOp(";") || semi.Span.End > limit {
			break
		}
		tok++
		kept, boundary, tokens = kept+1, semi.Span.End, tok
	}
	return kept, boundary, tokens
}

func combine(errs []*syntax.Error) error {
	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return err
}

// Snapshot returns the current snapshot of uri.
func (m *Manager) Snapshot(uri string) (*syntax.Snapshot, bool) {
	doc, err := m.lookup(uri)
	if err != nil {
		return nil, false
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.snapshot, doc.snapshot != nil
}

// Info describes uri.
func (m *Manager) Info(uri string) (Info, bool) {
	doc, err := m.lookup(uri)
	if err != nil {
		return Info{}, false
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return Info{URI: doc.uri, ID: doc.id, Version: doc.version, Length: len(doc.content)}, true
}

// Close stops tracking uri. Its cache entry stays so reopening identical
// content is free.
func (m *Manager) Close(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[uri]; !ok {
		return fmt.Errorf("%s: %w", uri, ErrUnknownDocument)
	}
	delete(m.docs, uri)
	return nil
}

// Stats returns activity counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	docs := len(m.docs)
	m.mu.RUnlock()
	return Stats{
		Documents:         docs,
		Parses:            m.parses.Load(),
		FullParses:        m.full.Load(),
		IncrementalParses: m.incremental.Load(),
		CacheHits:         m.hits.Load(),
		ReusedStatements:  m.reused.Load(),
	}
}
