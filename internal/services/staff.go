package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ytmanager-backend-go/internal/models"
)

// DefaultPassword is assigned when a member is created without one.
const DefaultPassword = "123456"

type StaffInput struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      string  `json:"role"`
	LeaderID  *string `json:"leaderId"`
	Status    string  `json:"status"`
	AvatarURL *string `json:"avatarUrl"`
}

type Team struct {
	Head    models.StaffMember   `json:"head"`
	Members []models.StaffMember `json:"members"`
}

type StaffService struct {
	Store    StaffStore
	Tokens   TokenService
	Notifier Notifier
	Now      func() time.Time
}

func (s *StaffService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *StaffService) Login(ctx context.Context, email, password string) (TokenPair, models.StaffMember, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return TokenPair{}, models.StaffMember{}, ErrBadRequest("Authentication failed")
	}
	member, err := s.Store.GetStaffByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return TokenPair{}, models.StaffMember{}, ErrUnauthorized("Authentication failed")
		}
		return TokenPair{}, models.StaffMember{}, err
	}
	if !s.Tokens.VerifyPassword(password, member.PasswordHash) {
		return TokenPair{}, models.StaffMember{}, ErrUnauthorized("Authentication failed")
	}
	if member.Status != models.StatusActive {
		return TokenPair{}, models.StaffMember{}, ErrForbidden("Account is inactive")
	}
	pair, err := s.Tokens.IssuePair(member)
	return pair, member, err
}

// Refresh issues a new pair from a refresh token, re-reading the member so
// role and status changes apply immediately.
func (s *StaffService) Refresh(ctx context.Context, refreshToken string) (TokenPair, models.StaffMember, error) {
	session, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, models.StaffMember{}, err
	}
	member, err := s.Viewer(ctx, session.StaffID)
	if err != nil {
		return TokenPair{}, models.StaffMember{}, err
	}
	pair, err := s.Tokens.IssuePair(member)
	return pair, member, err
}

// Viewer loads the active staff member behind a session.
func (s *StaffService) Viewer(ctx context.Context, staffID string) (models.StaffMember, error) {
	member, err := s.Store.GetStaff(ctx, staffID)
	if err != nil {
		if isNotFound(err) {
			return models.StaffMember{}, ErrUnauthorized("Authentication failed")
		}
		return models.StaffMember{}, err
	}
	if member.Status != models.StatusActive {
		return models.StaffMember{}, ErrForbidden("Account is inactive")
	}
	return member, nil
}

func (s *StaffService) List(ctx context.Context, viewer models.StaffMember) ([]models.StaffMember, error) {
	staff, err := s.Store.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleStaff(viewer, staff), nil
}

// Teams lists every team for administrators and the viewer's own team for
// everyone else.
func (s *StaffService) Teams(ctx context.Context, viewer models.StaffMember) ([]Team, error) {
	staff, err := s.Store.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	heads := TeamHeads(staff)
	if !viewer.IsAdmin() {
		head, ok := findStaff(staff, TeamOf(viewer))
		if !ok {
			head = viewer
		}
		heads = []models.StaffMember{head}
	}
	teams := make([]Team, 0, len(heads))
	for _, head := range heads {
		members := TeamMembers(head.ID, staff)
		if len(members) > 0 && members[0].ID == head.ID {
			members = members[1:]
		}
		if head.IsAdmin() && len(members) == 0 {
			continue
		}
		teams = append(teams, Team{Head: head, Members: members})
	}
	return teams, nil
}

// Create adds a member. Leaders may only add contributors to their own team;
// contributors may not create staff.
func (s *StaffService) Create(ctx context.Context, viewer models.StaffMember, in StaffInput) (models.StaffMember, error) {
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	switch viewer.Role {
	case models.RoleAdmin:
		if role == "" {
			role = models.RoleUser
		}
	case models.RoleLeader:
		if role != "" && role != models.RoleUser {
			return models.StaffMember{}, ErrForbidden("Leaders can only create USER members")
		}
		role = models.RoleUser
		leader := viewer.ID
		in.LeaderID = &leader
	default:
		return models.StaffMember{}, ErrForbidden("Not allowed")
	}
	if !validRole(role) {
		return models.StaffMember{}, ErrBadRequest("Invalid role")
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return models.StaffMember{}, ErrBadRequest("Name and email are required")
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return models.StaffMember{}, err
	}
	id := uuid.NewString()
	leaderID, err := s.validateLeader(ctx, id, role, in.LeaderID)
	if err != nil {
		return models.StaffMember{}, err
	}
	password := in.Password
	if strings.TrimSpace(password) == "" {
		password = DefaultPassword
	}
	hash, err := s.Tokens.HashPassword(password)
	if err != nil {
		return models.StaffMember{}, err
	}
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.StatusActive
	}
	if !validStatus(status) {
		return models.StaffMember{}, ErrBadRequest("Invalid status")
	}
	now := s.now()
	member := models.StaffMember{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		LeaderID:     leaderID,
		Status:       status,
		AvatarURL:    in.AvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateStaff(ctx, member); err != nil {
		return models.StaffMember{}, persistErr("create staff", err)
	}
	notifierOr(s.Notifier).Notify("staff", member.ID)
	return member, nil
}

// Update edits a member. Contributors may edit only themselves; leaders may
// edit themselves and their direct reports; neither may change roles or
// team placement.
func (s *StaffService) Update(ctx context.Context, viewer models.StaffMember, id string, in StaffInput) (models.StaffMember, error) {
	target, err := s.Store.GetStaff(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.StaffMember{}, ErrNotFound("Staff member not found")
		}
		return models.StaffMember{}, err
	}
	if !viewer.IsAdmin() {
		self := target.ID == viewer.ID
		report := viewer.Role == models.RoleLeader && target.Leader() == viewer.ID
		if !self && !report {
			return models.StaffMember{}, ErrForbidden("Not allowed")
		}
		in.Role = target.Role
		in.LeaderID = target.LeaderID
		if self {
			in.Status = target.Status
		}
	}

	updated := target
	if name := strings.TrimSpace(in.Name); name != "" {
		updated.Name = name
	}
	if email := normalizeEmail(in.Email); email != "" && email != target.Email {
		if err := s.ensureEmailFree(ctx, email, target.ID); err != nil {
			return models.StaffMember{}, err
		}
		updated.Email = email
	}
	if role := strings.ToUpper(strings.TrimSpace(in.Role)); role != "" {
		if !validRole(role) {
			return models.StaffMember{}, ErrBadRequest("Invalid role")
		}
		updated.Role = role
	}
	if target.Role != models.RoleUser && updated.Role == models.RoleUser {
		if err := s.ensureNoReports(ctx, target.ID); err != nil {
			return models.StaffMember{}, err
		}
	}
	if status := strings.ToUpper(strings.TrimSpace(in.Status)); status != "" {
		if !validStatus(status) {
			return models.StaffMember{}, ErrBadRequest("Invalid status")
		}
		updated.Status = status
	}
	if in.AvatarURL != nil {
		updated.AvatarURL = in.AvatarURL
	}
	updated.LeaderID, err = s.validateLeader(ctx, target.ID, updated.Role, in.LeaderID)
	if err != nil {
		return models.StaffMember{}, err
	}
	if strings.TrimSpace(in.Password) != "" {
		hash, err := s.Tokens.HashPassword(in.Password)
		if err != nil {
			return models.StaffMember{}, err
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = s.now()
	if err := s.Store.UpdateStaff(ctx, updated); err != nil {
		return models.StaffMember{}, persistErr("update staff", err)
	}
	notifierOr(s.Notifier).Notify("staff", updated.ID)
	return updated, nil
}

// Delete removes a member. Leaders may delete only their direct reports.
func (s *StaffService) Delete(ctx context.Context, viewer models.StaffMember, id string) error {
	if id == viewer.ID {
		return ErrBadRequest("You cannot delete yourself")
	}
	target, err := s.Store.GetStaff(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound("Staff member not found")
		}
		return err
	}
	switch viewer.Role {
	case models.RoleAdmin:
	case models.RoleLeader:
		if target.Leader() != viewer.ID {
			return ErrForbidden("Not allowed")
		}
	default:
		return ErrForbidden("Not allowed")
	}
	if err := s.Store.DeleteStaff(ctx, id); err != nil {
		return persistErr("delete staff", err)
	}
	notifierOr(s.Notifier).Notify("staff", id)
	return nil
}

func (s *StaffService) ChangePassword(ctx context.Context, viewer models.StaffMember, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return ErrBadRequest("New password is required")
	}
	if !s.Tokens.VerifyPassword(current, viewer.PasswordHash) {
		return ErrBadRequest("Current password is incorrect")
	}
	hash, err := s.Tokens.HashPassword(next)
	if err != nil {
		return err
	}
	return persistErr("set password", s.Store.SetStaffPassword(ctx, viewer.ID, hash))
}

// validateLeader enforces that a leader reference points at a LEADER or
// ADMIN other than the member itself. Administrators never have a leader.
func (s *StaffService) validateLeader(ctx context.Context, memberID, role string, leaderID *string) (*string, error) {
	if role == models.RoleAdmin || leaderID == nil || strings.TrimSpace(*leaderID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*leaderID)
	if id == memberID {
		return nil, ErrBadRequest("A member cannot lead themselves")
	}
	leader, err := s.Store.GetStaff(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBadRequest("Leader not found")
		}
		return nil, err
	}
	if leader.Role != models.RoleLeader && leader.Role != models.RoleAdmin {
		return nil, ErrBadRequest("Leader must be a LEADER or ADMIN")
	}
	return &id, nil
}

// ensureNoReports keeps every leaderId pointing at a LEADER or ADMIN: a
// member with direct reports cannot become a contributor.
func (s *StaffService) ensureNoReports(ctx context.Context, id string) error {
	staff, err := s.Store.ListStaff(ctx)
	if err != nil {
		return err
	}
	if len(TeamMembers(id, staff)) > 1 {
		return ErrBadRequest("Reassign this member's team before changing their role to USER")
	}
	return nil
}

func (s *StaffService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.Store.GetStaffByEmail(ctx, email)
	if err == nil && existing.ID != ownerID {
		return ErrBadRequest("Email already exists")
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleLeader || role == models.RoleUser
}

func validStatus(status string) bool {
	return status == models.StatusActive || status == models.StatusInactive
}
