package perm

// Permission is a bitwise union of role flags. Roles are non-exclusive: a
// single account can hold Teacher and LabManager at the same time, so
// membership is always tested with a mask, never with equality.
type Permission int64

const (
	Admin          Permission = 1 << 0
	Teacher        Permission = 1 << 1
	LabManager     Permission = 1 << 2
	Student        Permission = 1 << 3
	MeetingManager Permission = 1 << 4
	LinuxCourse    Permission = 1 << 5
)

// Has reports whether any bit of mask is set on p.
func (p Permission) Has(mask Permission) bool {
	return p&mask != 0
}
