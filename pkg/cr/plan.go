package cr

import "fmt"

// StatusKind classifies the outcome of merging one file.
type StatusKind uint8

const (
	// NoConflict means the change can be applied as is.
	NoConflict StatusKind = iota
	// CloneDeletedRemoteEdited means the CR deletes a file that has been
	// edited in the destination since.
	CloneDeletedRemoteEdited
	// CloneEditedRemoteDeleted means the CR edits a file that has been
	// deleted in the destination since.
	CloneEditedRemoteDeleted
	// CloneAddedRemoteAdded means both sides added a file with the same
	// name and different content.
	CloneAddedRemoteAdded
	// Conflict means the edits of both sides could not be merged, either
	// because they overlap or because the file is not text.
	Conflict
)

var statusKindNames = [...]string{
	NoConflict:               "no-conflict",
	CloneDeletedRemoteEdited: "clone-deleted-remote-edited",
	CloneEditedRemoteDeleted: "clone-edited-remote-deleted",
	CloneAddedRemoteAdded:    "clone-added-remote-added",
	Conflict:                 "conflict",
}

func (k StatusKind) String() string {
	if int(k) < len(statusKindNames) {
		return statusKindNames[k]
	}
	return fmt.Sprintf("StatusKind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k StatusKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Status is the outcome of merging one file. RemoteVersion is the version
// of the destination file the conflict is with; it is 0 for NoConflict.
type Status struct {
	Kind          StatusKind `json:"kind" yaml:"kind"`
	RemoteVersion int        `json:"remote-version,omitempty" yaml:"remote-version,omitempty"`
}

func (s Status) String() string {
	if s.Kind == NoConflict {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.RemoteVersion)
}

// Op is the change a FileStatus makes.
type Op uint8

const (
	Add Op = iota
	Update
	Delete
)

var opNames = [...]string{Add: "add", Update: "update", Delete: "delete"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// FileStatus is one entry of a sync plan. Version is the version the change
// is based on: for an update, the base version of the merge; for a delete,
// the version the deleting side saw last.
type FileStatus struct {
	Op      Op     `json:"op" yaml:"op"`
	Path    string `json:"path" yaml:"path"`
	Content []byte `json:"-" yaml:"-"`
	Version int    `json:"version,omitempty" yaml:"version,omitempty"`
	Status  Status `json:"status" yaml:"status"`
}

func (fs FileStatus) String() string {
	return fmt.Sprintf("%s %s: %s", fs.Op, fs.Path, fs.Status)
}

// Plan is the result of merging. Statuses holds the changes to the
// destination, ordered by path. Cleanup holds housekeeping changes to the
// source CR. Neither is applied when Conflicts is not empty.
type Plan struct {
	Statuses  []FileStatus `json:"statuses" yaml:"statuses"`
	Conflicts []FileStatus `json:"conflicts" yaml:"conflicts"`
	Cleanup   []FileStatus `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	Applied   bool         `json:"applied" yaml:"applied"`
}

// Clean reports whether the plan has no conflicts.
func (p *Plan) Clean() bool { return len(p.Conflicts) == 0 }

// Changes returns all the changes of the plan in the order they are
// applied.
func (p *Plan) Changes() []FileStatus {
	return append(append([]FileStatus(nil), p.Statuses...), p.Cleanup...)
}
