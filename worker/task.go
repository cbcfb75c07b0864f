package worker

import "fmt"

type Priority int

const (
	Idle Priority = iota
	Low
	BelowNormal
	Normal
	AboveNormal
	High
	Critical
)

var priorityNames = [...]string{"Idle", "Low", "BelowNormal", "Normal", "AboveNormal", "High", "Critical"}

func (p Priority) String() string {
	if p >= Idle && p <= Critical {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// TaskType tags a task. Among tasks of equal priority the lower type goes first.
type TaskType int

const (
	NoTask TaskType = iota
	RedrawLayer
	DownloadImage
	DrawImage
	ReloadData
	AddObject
)

var taskTypeNames = [...]string{"None", "RedrawLayer", "DownloadImage", "DrawImage", "ReloadData", "AddObject"}

func (t TaskType) String() string {
	if t >= NoTask && t <= AddObject {
		return taskTypeNames[t]
	}
	return fmt.Sprintf("TaskType(%d)", int(t))
}

// Task is a unit of work for the consumer. Key identifies what a typed task is
// about, a tile.Block for instance, and has to be comparable.
type Task struct {
	Type        TaskType
	Priority    Priority
	Collapsible bool
	Key         any

	seq uint64
}

// Equal reports whether t and o do the same work.
func (t Task) Equal(o Task) bool {
	return t.Type == o.Type && t.Key == o.Key
}

// before is the pop order: priority, then type, then first in first out.
func (t Task) before(o Task) bool {
	if t.Priority != o.Priority {
		return t.Priority > o.Priority
	}
	if t.Type != o.Type {
		return t.Type < o.Type
	}
	return t.seq < o.seq
}

func (t Task) String() string {
	if t.Key == nil {
		return fmt.Sprintf("%v@%v", t.Type, t.Priority)
	}
	return fmt.Sprintf("%v(%v)@%v", t.Type, t.Key, t.Priority)
}
