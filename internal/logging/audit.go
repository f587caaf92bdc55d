// Audit trail: one JSON line per archive mutation, verify pass or
// editor session. The category logs answer "what happened inside this
// run"; the audit log answers "what changed which archive when" and is
// meant to be queried with jq after the fact.

package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType labels one audit record.
type AuditEventType string

const (
	// Rewrite pipeline: one begin plus one commit or abort per Apply
	AuditRewriteBegin  AuditEventType = "rewrite_begin"
	AuditRewriteCommit AuditEventType = "rewrite_commit"
	AuditRewriteAbort  AuditEventType = "rewrite_abort"

	// Integrity checks
	AuditVerifyRun AuditEventType = "verify_run"

	// External editor sessions
	AuditEditorSession AuditEventType = "editor_session"
)

// AuditEvent is one record in the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	Archive    string                 `json:"archive,omitempty"`
	Entry      string                 `json:"entry,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger writes audit events, optionally stamped with one archive
// path so call sites deeper in the pipeline can omit it.
type AuditLogger struct {
	archive string
}

// InitAudit opens the audit log file. Outside debug mode this is a
// no-op and every Log call stays silent.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil // Already initialized
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	header := fmt.Sprintf("# Audit log started at %s\n# One JSON object per line\n", time.Now().Format(time.RFC3339))
	auditFile.WriteString(header)

	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithArchive returns an audit logger scoped to one archive path.
func AuditWithArchive(path string) *AuditLogger {
	return &AuditLogger{archive: path}
}

// Log writes an audit event, filling in defaults.
func (a *AuditLogger) Log(event AuditEvent) {
	if !IsDebugMode() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.Archive == "" {
		event.Archive = a.archive
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// RewriteBegin logs the staged mutation set before any byte is written.
func (a *AuditLogger) RewriteBegin(upserts, deletes int) {
	a.Log(AuditEvent{
		EventType: AuditRewriteBegin,
		Success:   true,
		Fields:    map[string]interface{}{"upserts": upserts, "deletes": deletes},
		Message:   fmt.Sprintf("Rewrite begin: %d upserts, %d deletes", upserts, deletes),
	})
}

// RewriteCommit logs a rewrite that replaced the archive.
func (a *AuditLogger) RewriteCommit(added, replaced, deleted int, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditRewriteCommit,
		Success:    true,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"added": added, "replaced": replaced, "deleted": deleted},
		Message:    fmt.Sprintf("Rewrite commit: +%d ~%d -%d (%dms)", added, replaced, deleted, durationMs),
	})
}

// RewriteAbort logs a rewrite that left the original untouched.
func (a *AuditLogger) RewriteAbort(err error, durationMs int64) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Log(AuditEvent{
		EventType:  AuditRewriteAbort,
		Success:    false,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Rewrite abort: %s (%dms)", errMsg, durationMs),
	})
}

// VerifyRun logs one integrity pass over an archive.
func (a *AuditLogger) VerifyRun(files, bad int, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditVerifyRun,
		Success:    bad == 0,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"files": files, "bad": bad},
		Message:    fmt.Sprintf("Verify: %d files, %d bad (%dms)", files, bad, durationMs),
	})
}

// EditorSession logs one external editor round trip.
func (a *AuditLogger) EditorSession(entry, editorName string, changed bool, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditEditorSession,
		Entry:      entry,
		Success:    true,
		DurationMs: durationMs,
		Fields:     map[string]interface{}{"editor": editorName, "changed": changed},
		Message:    fmt.Sprintf("Editor session: %s via %s (changed=%v, %dms)", entry, editorName, changed, durationMs),
	})
}
