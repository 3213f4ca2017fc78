package writeback

import (
	"strings"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// SplitName splits a display name on its first run of whitespace.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// ChangedFields returns the edit an admin form submits after changing
// before into after: only fields whose values differ are set.  A renamed
// user carries both name halves.
func ChangedFields(before, after model.NormalizedUser) model.UserFields {
	var f model.UserFields
	if after.Name != before.Name {
		first, last := SplitName(after.Name)
		f.FirstName, f.LastName = &first, &last
	}
	if after.Email != before.Email {
		f.Email = &after.Email
	}
	if after.Phone != before.Phone {
		f.Phone = &after.Phone
	}
	if after.Role != before.Role {
		f.Role = &after.Role
	}
	if after.Status != before.Status {
		f.Status = &after.Status
	}
	return f
}
