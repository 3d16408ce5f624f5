// Package journal persists task lifecycle events to SQLite for operational
// inspection: which tasks ran, when, and how they ended.
package journal
