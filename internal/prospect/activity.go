package prospect

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies an entry in a prospect's history.
type ActivityType string

const (
	ActivityCreated        ActivityType = "created"
	ActivityStatusChanged  ActivityType = "status_changed"
	ActivityChannelUpdated ActivityType = "channel_updated"
	ActivityNotesUpdated   ActivityType = "notes_updated"
	ActivityAssigned       ActivityType = "assigned"
	ActivityUnassigned     ActivityType = "unassigned"
)

// Activity is an append-only history entry. Entries are never edited.
type Activity struct {
	ID          uuid.UUID    `json:"id"`
	ProspectID  uuid.UUID    `json:"prospectId"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// CreatedActivity is the first history entry of p, stamped with its
// creation time.
func CreatedActivity(p Prospect) Activity {
	return newActivity(p.ID, ActivityCreated, p.CreatedAt, "Prospect created (%s)", p.Source)
}

func newActivity(prospectID uuid.UUID, typ ActivityType, at time.Time, format string, args ...any) Activity {
	return Activity{
		ID:          uuid.New(),
		ProspectID:  prospectID,
		Type:        typ,
		Description: fmt.Sprintf(format, args...),
		CreatedAt:   at,
	}
}
