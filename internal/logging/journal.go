package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// JournalEventType names a journal event; each maps to one Mangle predicate.
type JournalEventType string

const (
	// Edits coming from outside the rule engines -> edit_event/5
	JournalEditSet    JournalEventType = "edit_set"
	JournalEditRemove JournalEventType = "edit_remove"

	// Writes performed by a rule during a cascade -> rule_write/5
	JournalRuleWrite  JournalEventType = "rule_write"
	JournalRuleRemove JournalEventType = "rule_remove"

	// Document lifecycle -> document_event/3
	JournalDocumentLoad     JournalEventType = "document_load"
	JournalDocumentActivate JournalEventType = "document_activate"

	// Audit results -> audit_violation/4
	JournalViolation JournalEventType = "audit_violation"
)

// JournalEvent is one JSON line in the journal file.
type JournalEvent struct {
	Timestamp  int64            `json:"ts"`
	EventType  JournalEventType `json:"event"`
	Document   string           `json:"doc"`
	Actor      string           `json:"actor"`  // rule name or "user"
	Target     string           `json:"target"` // cell address, e.g. system.nspin
	Value      string           `json:"value"`
	MangleFact string           `json:"mangle"`
}

var (
	journalFile *os.File
	journalMu   sync.Mutex
)

// InitJournal opens the journal file. It is a no-op unless debug mode is on.
func InitJournal() error {
	if !IsDebugMode() {
		return nil
	}

	journalMu.Lock()
	defer journalMu.Unlock()

	if journalFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_journal.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}
	journalFile = file
	return nil
}

// CloseJournal closes the journal file.
func CloseJournal() {
	journalMu.Lock()
	defer journalMu.Unlock()

	if journalFile != nil {
		journalFile.Close()
		journalFile = nil
	}
}

// Journal records parameter writes for one document.
type Journal struct {
	docID string
}

// JournalFor returns a journal scoped to a document.
func JournalFor(docID string) *Journal {
	return &Journal{docID: docID}
}

// Log writes an event. Events are dropped when the journal is closed.
func (j *Journal) Log(e JournalEvent) {
	journalMu.Lock()
	defer journalMu.Unlock()

	if journalFile == nil {
		return
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.Document == "" {
		e.Document = j.docID
	}
	e.MangleFact = journalFact(e)

	data, err := json.Marshal(e)
	if err == nil {
		journalFile.WriteString(string(data) + "\n")
	}
}

// Edit records a write that did not come from a rule.
func (j *Journal) Edit(target, value string, removed bool) {
	t := JournalEditSet
	if removed {
		t = JournalEditRemove
	}
	j.Log(JournalEvent{EventType: t, Actor: "user", Target: target, Value: value})
}

// RuleWrite records a write performed by a rule.
func (j *Journal) RuleWrite(rule, target, value string, removed bool) {
	t := JournalRuleWrite
	if removed {
		t = JournalRuleRemove
	}
	j.Log(JournalEvent{EventType: t, Actor: rule, Target: target, Value: value})
}

// DocumentEvent records a lifecycle step.
func (j *Journal) DocumentEvent(t JournalEventType, detail string) {
	j.Log(JournalEvent{EventType: t, Actor: "document", Value: detail})
}

// Violation records an audit finding.
func (j *Journal) Violation(rule, message string) {
	j.Log(JournalEvent{EventType: JournalViolation, Actor: rule, Value: message})
}

func journalFact(e JournalEvent) string {
	switch e.EventType {
	case JournalEditSet, JournalEditRemove:
		return fmt.Sprintf("edit_event(%d, /%s, \"%s\", \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Document, e.Target, escapeString(e.Value))
	case JournalRuleWrite, JournalRuleRemove:
		return fmt.Sprintf("rule_write(%d, /%s, \"%s\", \"%s\", \"%s\").",
			e.Timestamp, e.EventType, e.Actor, e.Target, escapeString(e.Value))
	case JournalViolation:
		return fmt.Sprintf("audit_violation(%d, \"%s\", \"%s\", \"%s\").",
			e.Timestamp, e.Document, e.Actor, escapeString(e.Value))
	default:
		return fmt.Sprintf("document_event(%d, /%s, \"%s\").",
			e.Timestamp, e.EventType, e.Document)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
