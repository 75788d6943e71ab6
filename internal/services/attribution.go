package services

import (
	"strings"

	"ytmanager-backend-go/internal/models"
)

// Filter values besides a concrete leader id.
const (
	FilterAll   = "ALL"
	FilterTeams = "TEAMS"
)

type Grouping string

const (
	GroupIndividual Grouping = "INDIVIDUAL"
	GroupTeam       Grouping = "TEAM"
)

// Entity is one row of an aggregation: a staff member and the staff ids
// whose channels roll up into it.
type Entity struct {
	Staff     models.StaffMember
	MemberIDs []string
}

type Resolution struct {
	Grouping Grouping
	Entities []Entity
	// TeamID is the team the view is restricted to, "" for system-wide.
	TeamID string
}

// Resolve turns the viewer's role and the selected filter into the entity
// set and grouping for an aggregation. Non-admin viewers always get their
// own team, whatever the filter.
func Resolve(viewer models.StaffMember, staff []models.StaffMember, filter string) (Resolution, error) {
	filter = strings.TrimSpace(filter)
	if !viewer.IsAdmin() {
		teamID := TeamOf(viewer)
		return Resolution{
			Grouping: GroupIndividual,
			Entities: individuals(TeamMembers(teamID, staff)),
			TeamID:   teamID,
		}, nil
	}

	switch strings.ToUpper(filter) {
	case "", FilterAll:
		return Resolution{Grouping: GroupIndividual, Entities: individuals(staff)}, nil
	case FilterTeams:
		heads := TeamHeads(staff)
		entities := make([]Entity, 0, len(heads))
		for _, head := range heads {
			entities = append(entities, Entity{Staff: head, MemberIDs: rollupMembers(head, staff)})
		}
		return Resolution{Grouping: GroupTeam, Entities: entities}, nil
	}

	target, ok := findStaff(staff, filter)
	if !ok {
		return Resolution{}, ErrNotFound("Team not found")
	}
	if target.IsAdmin() {
		return Resolution{Grouping: GroupIndividual, Entities: individuals(staff)}, nil
	}
	return Resolution{
		Grouping: GroupIndividual,
		Entities: individuals(TeamMembers(target.ID, staff)),
		TeamID:   target.ID,
	}, nil
}

// TeamOf is the id of the team a member belongs to: a leader heads their own
// team, a contributor belongs to their leader's, and anyone else without a
// leader is a one-person team.
func TeamOf(member models.StaffMember) string {
	if member.Role == models.RoleLeader || member.IsAdmin() {
		return member.ID
	}
	if leader := member.Leader(); leader != "" {
		return leader
	}
	return member.ID
}

// TeamMembers is the head followed by their direct reports, one level deep,
// in input order.
func TeamMembers(headID string, staff []models.StaffMember) []models.StaffMember {
	members := []models.StaffMember{}
	for _, s := range staff {
		if s.ID == headID {
			members = append(members, s)
			break
		}
	}
	for _, s := range staff {
		if s.ID != headID && s.Leader() == headID {
			members = append(members, s)
		}
	}
	return members
}

// TeamHeads lists the entities of a team comparison. Leaders and
// administrators always head a team; a leaderless contributor is a team of
// one. Each staff member rolls up into exactly one head.
func TeamHeads(staff []models.StaffMember) []models.StaffMember {
	heads := []models.StaffMember{}
	for _, s := range staff {
		switch {
		case s.Role == models.RoleLeader, s.IsAdmin():
			heads = append(heads, s)
		case s.Leader() == "":
			heads = append(heads, s)
		}
	}
	return heads
}

// rollupMembers excludes reports who head a team of their own so no channel
// is counted under two heads.
func rollupMembers(head models.StaffMember, staff []models.StaffMember) []string {
	ids := []string{head.ID}
	for _, s := range staff {
		if s.ID == head.ID || s.Leader() != head.ID || s.Role == models.RoleLeader {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

// VisibleStaff is the staff directory a viewer may see: administrators see
// everyone, leaders see their team, contributors see their leader and
// teammates.
func VisibleStaff(viewer models.StaffMember, staff []models.StaffMember) []models.StaffMember {
	if viewer.IsAdmin() {
		return staff
	}
	if viewer.Role == models.RoleLeader {
		return TeamMembers(viewer.ID, staff)
	}
	leader := viewer.Leader()
	if leader == "" {
		return []models.StaffMember{viewer}
	}
	return TeamMembers(leader, staff)
}

// VisibleStaffIDs is VisibleStaff as a set.
func VisibleStaffIDs(viewer models.StaffMember, staff []models.StaffMember) map[string]bool {
	ids := map[string]bool{}
	for _, s := range VisibleStaff(viewer, staff) {
		ids[s.ID] = true
	}
	return ids
}

func individuals(staff []models.StaffMember) []Entity {
	entities := make([]Entity, 0, len(staff))
	for _, s := range staff {
		entities = append(entities, Entity{Staff: s, MemberIDs: []string{s.ID}})
	}
	return entities
}

func findStaff(staff []models.StaffMember, id string) (models.StaffMember, bool) {
	for _, s := range staff {
		if s.ID == id {
			return s, true
		}
	}
	return models.StaffMember{}, false
}
