package pool

import "github.com/abrezinsky/squarespool/internal/models"

// propTransitions lists the status changes an admin may make directly.
// Reaching graded only happens through grading.
var propTransitions = map[models.PropStatus][]models.PropStatus{
	models.PropDraft:  {models.PropOpen},
	models.PropOpen:   {models.PropLocked},
	models.PropLocked: {models.PropOpen},
}

// CanTransition reports whether a prop may move from one status to another
func CanTransition(from, to models.PropStatus) bool {
	for _, s := range propTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanGrade reports whether a prop in this status may be graded (or regraded)
func CanGrade(s models.PropStatus) bool {
	return s == models.PropOpen || s == models.PropLocked || s == models.PropGraded
}
