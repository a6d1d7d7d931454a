package domain

import "time"

// StaffMember models a support agent. ActiveCount is derived from assignments and is
// only changed in the same commit as the transition that caused it.
type StaffMember struct {
	ID              string
	GuildID         string
	OnDuty          bool
	OnDutySince     *time.Time
	Specializations []string
	ActiveCount     int
	UpdatedAt       time.Time
}

// HasSpecialization reports whether the staff member carries tag.
func (s *StaffMember) HasSpecialization(tag string) bool {
	for _, candidate := range s.Specializations {
		if candidate == tag {
			return true
		}
	}
	return false
}
