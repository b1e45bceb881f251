package domain

import "time"

// AssignmentChange routes a report to a department and supervisor. The
// worker assignment belongs to the previous routing and is cleared.
type AssignmentChange struct {
	Dept         string
	SupervisorID string
}

type WorkerChange struct {
	WorkerID   string
	WorkerName string
}

type ClassificationChange struct {
	Value string
	Note  string
}

// Guard lists the conditions a report must meet for a Mutation to apply.
// Repositories evaluate it in the same write as the update.
type Guard struct {
	StatusIn   []Status
	AssignedTo string
}

func (g Guard) Holds(r *Report) bool {
	if len(g.StatusIn) > 0 {
		ok := false
		for _, s := range g.StatusIn {
			if r.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if g.AssignedTo != "" && !r.IsAssignedTo(g.AssignedTo) {
		return false
	}
	return true
}

// Mutation is a compound field update plus exactly one history entry.
type Mutation struct {
	Status         *Status
	Assignment     *AssignmentChange
	Worker         *WorkerChange
	Classification *ClassificationChange

	Entry HistoryEntry
	Guard Guard
}

// Apply performs the mutation on r in place. Callers are responsible for
// checking the guard first.
func (m Mutation) Apply(r *Report, now time.Time) {
	if m.Status != nil {
		r.Status = *m.Status
	}
	if m.Assignment != nil {
		r.AssignedDept = m.Assignment.Dept
		r.AssignedTo = StringPtr(m.Assignment.SupervisorID)
		r.AssignedToWorker = nil
		r.AssignedWorkerName = ""
	}
	if m.Worker != nil {
		r.AssignedToWorker = StringPtr(m.Worker.WorkerID)
		r.AssignedWorkerName = m.Worker.WorkerName
	}
	if m.Classification != nil {
		r.Classification = m.Classification.Value
		r.ClassificationNote = m.Classification.Note
	}
	r.StatusHistory = append(r.StatusHistory, m.Entry)
	r.UpdatedAt = now
}
