package service

import (
	"fmt"

	"github.com/stemsi/roster-backend/internal/model"
)

// Kind tags an operation with the kind of access it needs.
type Kind uint8

const (
	KindRead Kind = iota + 1
	KindMutate
	// KindRestricted marks reads that only administrators may perform.
	KindRestricted
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindMutate:
		return "mutate"
	case KindRestricted:
		return "restricted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Operation is a named unit of work the guard can authorize.
type Operation struct {
	Name string
	Kind Kind
}

var (
	OpListMajors   = Operation{"list_majors", KindRead}
	OpListStudents = Operation{"list_students", KindRead}
	OpViewStudent  = Operation{"view_student", KindRead}
	OpDashboard    = Operation{"dashboard", KindRead}

	OpCreateMajor   = Operation{"create_major", KindMutate}
	OpRenameMajor   = Operation{"rename_major", KindMutate}
	OpDeleteMajor   = Operation{"delete_major", KindMutate}
	OpCreateStudent = Operation{"create_student", KindMutate}
	OpUpdateStudent = Operation{"update_student", KindMutate}
	OpDeleteStudent = Operation{"delete_student", KindMutate}
	OpImportCSV     = Operation{"import_csv", KindMutate}
	OpExportCSV     = Operation{"export_csv", KindMutate}

	OpViewAuditLog   = Operation{"view_audit_log", KindRestricted}
	OpStreamAuditLog = Operation{"stream_audit_log", KindRestricted}
)

// Guard decides whether an identity may perform an operation. It is the only
// place roles are interpreted.
type Guard struct {
	grants map[model.Role]map[Kind]bool
}

// NewGuard returns the roster policy: guests read, admins do everything.
func NewGuard() *Guard {
	return &Guard{grants: map[model.Role]map[Kind]bool{
		model.RoleGuest: {KindRead: true},
		model.RoleAdmin: {KindRead: true, KindMutate: true, KindRestricted: true},
	}}
}

// Authorize returns nil, ErrUnauthenticated or ErrForbidden. Reads are open to
// anonymous callers; actor may be nil.
func (g *Guard) Authorize(actor *model.Identity, op Operation) error {
	if op.Kind == KindRead {
		return nil
	}
	if actor == nil {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, op.Name)
	}
	if !g.grants[actor.Role][op.Kind] {
		return fmt.Errorf("%w: %s (%s)", ErrForbidden, op.Name, actor.Role)
	}
	return nil
}
