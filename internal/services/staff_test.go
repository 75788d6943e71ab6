package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytmanager-backend-go/internal/models"
)

var testTokens = TokenService{Secret: []byte("test-secret"), Issuer: "ytmanager", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, Hasher: cheapHasher}

func staffFixture(t *testing.T) (*StaffService, *memStore) {
	t.Helper()
	st := newMemStore()
	hash, err := testTokens.HashPassword("s3cret")
	require.NoError(t, err)
	admin := member("admin", "Admin", models.RoleAdmin, "")
	admin.PasswordHash = hash
	lead := member("lead", "Lead", models.RoleLeader, "")
	lead.PasswordHash = hash
	st.addStaff(admin, lead, member("u1", "U1", models.RoleUser, "lead"), member("other", "Other", models.RoleUser, ""))
	return &StaffService{Store: st, Tokens: testTokens}, st
}

func TestLoginAndRefresh(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()

	pair, who, err := svc.Login(ctx, " Admin@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", who.ID)
	session, err := testTokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.Role)

	_, _, err = svc.Login(ctx, "admin@example.com", "wrong")
	status, _ := StatusOf(err)
	assert.Equal(t, 401, status)

	_, err = testTokens.ParseAccess(pair.RefreshToken)
	assert.Error(t, err, "refresh tokens are not access tokens")

	admin, _ := st.GetStaff(ctx, "admin")
	admin.Status = models.StatusInactive
	require.NoError(t, st.UpdateStaff(ctx, admin))
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	status, _ = StatusOf(err)
	assert.Equal(t, 403, status)
}

func TestLeaderCreatesContributorsOnly(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	lead, _ := st.GetStaff(ctx, "lead")

	_, err := svc.Create(ctx, lead, StaffInput{Name: "New Lead", Email: "nl@example.com", Role: models.RoleLeader})
	status, _ := StatusOf(err)
	assert.Equal(t, 403, status)

	created, err := svc.Create(ctx, lead, StaffInput{Name: "New", Email: "New@Example.com", LeaderID: strPtr("admin")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Equal(t, "lead", created.Leader())
	assert.Equal(t, "new@example.com", created.Email)
	assert.True(t, testTokens.VerifyPassword(DefaultPassword, created.PasswordHash))

	u1, _ := st.GetStaff(ctx, "u1")
	_, err = svc.Create(ctx, u1, StaffInput{Name: "X", Email: "x@example.com"})
	status, _ = StatusOf(err)
	assert.Equal(t, 403, status)
}

func TestCreateValidation(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	admin, _ := st.GetStaff(ctx, "admin")

	_, err := svc.Create(ctx, admin, StaffInput{Name: "Dup", Email: "u1@example.com"})
	assert.Error(t, err)
	_, err = svc.Create(ctx, admin, StaffInput{Name: "Bad", Email: "b@example.com", LeaderID: strPtr("u1")})
	assert.Error(t, err, "leader must be a LEADER or ADMIN")
	_, err = svc.Create(ctx, admin, StaffInput{Name: "Bad", Email: "b@example.com", Role: "OWNER"})
	assert.Error(t, err)

	boss2, err := svc.Create(ctx, admin, StaffInput{Name: "Boss", Email: "boss2@example.com", Role: "admin", LeaderID: strPtr("lead")})
	require.NoError(t, err)
	assert.Nil(t, boss2.LeaderID)
}

func TestUpdatePermissions(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	lead, _ := st.GetStaff(ctx, "lead")
	u1, _ := st.GetStaff(ctx, "u1")

	updated, err := svc.Update(ctx, u1, "u1", StaffInput{Name: "Renamed", Role: models.RoleAdmin, Status: models.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.RoleUser, updated.Role)
	assert.Equal(t, models.StatusActive, updated.Status)

	_, err = svc.Update(ctx, u1, "other", StaffInput{Name: "Nope"})
	assert.Error(t, err)

	deactivated, err := svc.Update(ctx, lead, "u1", StaffInput{Status: models.StatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, deactivated.Status)
	assert.Equal(t, "lead", deactivated.Leader())
}

func TestLeaderWithReportsCannotBecomeUser(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	admin, _ := st.GetStaff(ctx, "admin")
	st.addStaff(member("idle", "Idle Lead", models.RoleLeader, ""))

	_, err := svc.Update(ctx, admin, "lead", StaffInput{Role: models.RoleUser})
	status, _ := StatusOf(err)
	assert.Equal(t, 400, status)
	lead, _ := st.GetStaff(ctx, "lead")
	assert.Equal(t, models.RoleLeader, lead.Role)

	demoted, err := svc.Update(ctx, admin, "idle", StaffInput{Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)

	promoted, err := svc.Update(ctx, admin, "lead", StaffInput{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestDeletePermissions(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	lead, _ := st.GetStaff(ctx, "lead")
	admin, _ := st.GetStaff(ctx, "admin")

	assert.Error(t, svc.Delete(ctx, lead, "other"))
	assert.Error(t, svc.Delete(ctx, lead, "lead"))
	require.NoError(t, svc.Delete(ctx, lead, "u1"))
	require.NoError(t, svc.Delete(ctx, admin, "other"))

	_, err := st.GetStaff(ctx, "u1")
	assert.True(t, isNotFound(err))
}

func TestChangePassword(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	lead, _ := st.GetStaff(ctx, "lead")

	assert.Error(t, svc.ChangePassword(ctx, lead, "wrong", "next"))
	require.NoError(t, svc.ChangePassword(ctx, lead, "s3cret", "next"))
	_, _, err := svc.Login(ctx, "lead@example.com", "next")
	assert.NoError(t, err)
}

func TestTeams(t *testing.T) {
	svc, st := staffFixture(t)
	ctx := context.Background()
	admin, _ := st.GetStaff(ctx, "admin")
	u1, _ := st.GetStaff(ctx, "u1")

	teams, err := svc.Teams(ctx, admin)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "lead", teams[0].Head.ID)
	require.Len(t, teams[0].Members, 1)
	assert.Equal(t, "u1", teams[0].Members[0].ID)
	assert.Equal(t, "other", teams[1].Head.ID)

	own, err := svc.Teams(ctx, u1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "lead", own[0].Head.ID)
}
