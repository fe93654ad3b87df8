package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/utils"
)

func TestRegisterIssuesCustomerToken(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")

	sess := f.register(t, "  Ada@Example.COM ", s.ID)

	assert.Equal(t, "ada@example.com", sess.Viewer.Email)
	assert.Equal(t, model.RoleCustomer, sess.Viewer.Role)
	assert.Equal(t, model.DefaultMonthlyFee, sess.Viewer.MonthlyFee)
	require.NotNil(t, sess.Viewer.SeriesID)
	assert.Equal(t, s.ID, *sess.Viewer.SeriesID)

	claims, err := utils.ParseAccessToken(testSecret, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Viewer.ID, claims.ViewerID)
	assert.Equal(t, "customer", claims.Role)

	stored, err := f.store.ViewerByID(f.ctx, sess.Viewer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", stored.PasswordHash)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "Secret123"))
	assert.Contains(t, f.events.types(), queue.EventViewerRegistered)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	f.register(t, "ada@example.com", s.ID)

	_, err := f.auth.Register(f.ctx, model.Registration{
		FirstName: "Eve", Email: "ADA@example.com ", Password: "Secret123", SeriesID: s.ID, CountryID: f.country,
	})

	requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, 1, f.store.Counts().Viewers)
}

func TestRegisterInvalidReferences(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")

	_, err := f.auth.Register(f.ctx, model.Registration{
		FirstName: "Ada", Email: "a@example.com", Password: "Secret123", SeriesID: 999, CountryID: f.country,
	})
	requireKind(t, err, apperr.KindInvalidReference)

	_, err = f.auth.Register(f.ctx, model.Registration{
		FirstName: "Ada", Email: "a@example.com", Password: "Secret123", SeriesID: s.ID, CountryID: 999,
	})
	requireKind(t, err, apperr.KindInvalidReference)
	assert.Zero(t, f.store.Counts().Viewers)
}

func TestRegisterCustomFee(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	fee := 9.5

	sess, err := f.auth.Register(f.ctx, model.Registration{
		FirstName: "Ada", Email: "a@example.com", Password: "Secret123",
		SeriesID: s.ID, CountryID: f.country, MonthlyFee: &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, 9.5, sess.Viewer.MonthlyFee)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	f.register(t, "ada@example.com", s.ID)

	_, wrongPassword := f.auth.Login(f.ctx, "ada@example.com", "Wrong1234")
	_, unknownEmail := f.auth.Login(f.ctx, "nobody@example.com", "Secret123")

	a := requireKind(t, wrongPassword, apperr.KindInvalidCredentials)
	b := requireKind(t, unknownEmail, apperr.KindInvalidCredentials)
	assert.Equal(t, a.Msg, b.Msg)
	assert.Equal(t, a.Details, b.Details)
}

func TestLoginSucceedsWithNormalizedEmail(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	reg := f.register(t, "ada@example.com", s.ID)
	f.store.SetRole(reg.Viewer.ID, model.RoleEmployee)

	sess, err := f.auth.Login(f.ctx, " ADA@example.com", "Secret123")
	require.NoError(t, err)

	claims, err := utils.ParseAccessToken(testSecret, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "employee", claims.Role)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	reg := f.register(t, "ada@example.com", s.ID)

	_, err := f.auth.UpdateProfile(f.ctx, reg.Viewer.ID, model.ViewerPatch{})
	requireKind(t, err, apperr.KindValidation)

	city := "Oslo"
	zip := uint32(150)
	v, err := f.auth.UpdateProfile(f.ctx, reg.Viewer.ID, model.ViewerPatch{BillingCity: &city, BillingZipcode: &zip})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", v.BillingCity)
	assert.Equal(t, "Ada", v.FirstName)
	require.NotNil(t, v.BillingZipcode)
	assert.Equal(t, uint32(150), *v.BillingZipcode)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	reg := f.register(t, "ada@example.com", s.ID)

	err := f.auth.ChangePassword(f.ctx, reg.Viewer.ID, PasswordChange{Current: "nope", New: "Newpass123"})
	requireKind(t, err, apperr.KindInvalidCredentials)

	require.NoError(t, f.auth.ChangePassword(f.ctx, reg.Viewer.ID, PasswordChange{Current: "Secret123", New: "Newpass123"}))
	_, err = f.auth.Login(f.ctx, "ada@example.com", "Newpass123")
	assert.NoError(t, err)
}

func TestDeleteAccountRemovesEngagement(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	e := f.episode(t, s.ID, 1)
	reg := f.register(t, "ada@example.com", s.ID)
	other := f.register(t, "eve@example.com", s.ID)

	_, err := f.engage.AddFeedback(f.ctx, reg.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 4})
	require.NoError(t, err)
	_, err = f.engage.RecordProgress(f.ctx, reg.Viewer.ID, e.ID, s.ID, 30)
	require.NoError(t, err)
	_, err = f.engage.AddFeedback(f.ctx, other.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 2})
	require.NoError(t, err)

	require.NoError(t, f.auth.DeleteAccount(f.ctx, reg.Viewer.ID))

	c := f.store.Counts()
	assert.Equal(t, 1, c.Viewers)
	assert.Equal(t, 1, c.Feedback)
	assert.Zero(t, c.WatchHistory)

	_, err = f.auth.Me(f.ctx, reg.Viewer.ID)
	requireKind(t, err, apperr.KindNotFound)
	err = f.auth.DeleteAccount(f.ctx, reg.Viewer.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeleteAccountRollsBack(t *testing.T) {
	f := newFixture(t)
	s := f.series(t, "Dark")
	reg := f.register(t, "ada@example.com", s.ID)
	_, err := f.engage.AddFeedback(f.ctx, reg.Viewer.ID, NewFeedback{SeriesID: s.ID, Rating: 4})
	require.NoError(t, err)

	f.store.FailOn("DeleteViewer", assert.AnError)
	err = f.auth.DeleteAccount(f.ctx, reg.Viewer.ID)

	requireKind(t, err, apperr.KindInternal)
	c := f.store.Counts()
	assert.Equal(t, 1, c.Viewers)
	assert.Equal(t, 1, c.Feedback)
}
