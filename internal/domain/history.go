package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryStatus         EntryKind = "status"
	EntryAssignment     EntryKind = "assignment"
	EntryClassification EntryKind = "classification"
	EntryNote           EntryKind = "note"
)

// HistoryEntry is one immutable audit record embedded in a report.
// ChangedAt is a concrete timestamp taken when the entry is built.
type HistoryEntry struct {
	ID   string    `bson:"id" json:"id"`
	Kind EntryKind `bson:"kind" json:"kind"`

	Status           Status `bson:"status,omitempty" json:"status,omitempty"`
	Classification   string `bson:"classification,omitempty" json:"classification,omitempty"`
	AssignedDept     string `bson:"assignedDept,omitempty" json:"assignedDept,omitempty"`
	AssignedTo       string `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	AssignedToWorker string `bson:"assignedToWorker,omitempty" json:"assignedToWorker,omitempty"`
	WorkerName       string `bson:"workerName,omitempty" json:"workerName,omitempty"`

	ChangedBy string    `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
	Note      string    `bson:"note" json:"note"`
}

func newEntry(kind EntryKind, actor string, at time.Time, note string) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Kind:      kind,
		ChangedBy: actor,
		ChangedAt: at.UTC(),
		Note:      note,
	}
}

func NewStatusEntry(status Status, actor string, at time.Time, note string) HistoryEntry {
	e := newEntry(EntryStatus, actor, at, note)
	e.Status = status
	return e
}

func NewNoteEntry(actor string, at time.Time, note string) HistoryEntry {
	return newEntry(EntryNote, actor, at, note)
}

func NewClassificationEntry(classification, actor string, at time.Time, note string) HistoryEntry {
	e := newEntry(EntryClassification, actor, at, note)
	e.Classification = classification
	return e
}

// NewAssignmentEntry records a department/supervisor change. An empty
// note is replaced by a readable summary.
func NewAssignmentEntry(dept, supervisorID, actor string, at time.Time, note string) HistoryEntry {
	if note == "" {
		who := supervisorID
		if who == "" {
			who = "unassigned"
		}
		d := dept
		if d == "" {
			d = "no dept"
		}
		note = fmt.Sprintf("Assigned to %s (%s)", who, d)
	}
	e := newEntry(EntryAssignment, actor, at, note)
	e.AssignedDept = dept
	e.AssignedTo = supervisorID
	return e
}

func NewWorkerAssignmentEntry(workerID, workerName, actor string, at time.Time, note string) HistoryEntry {
	if note == "" {
		note = fmt.Sprintf("Assigned to worker %s", workerName)
	}
	e := newEntry(EntryAssignment, actor, at, note)
	e.AssignedToWorker = workerID
	e.WorkerName = workerName
	return e
}
