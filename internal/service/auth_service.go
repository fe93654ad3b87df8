package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/queue"
	"github.com/iliyamo/webseries-catalog/internal/repository"
	"github.com/iliyamo/webseries-catalog/internal/utils"
)

// AuthOptions configures token issuance and hashing.
type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Session is what register and login hand back to the client.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Viewer    model.Viewer `json:"viewer"`
}

// PasswordChange is the input of ChangePassword.
type PasswordChange struct {
	Current string
	New     string
}

// AuthService owns viewer accounts: registration, login and self-service
// profile operations.
type AuthService struct {
	store  repository.Store
	opts   AuthOptions
	log    logrus.FieldLogger
	events emitter
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store repository.Store, opts AuthOptions, pub Publisher, log logrus.FieldLogger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = utils.DefaultTokenTTL
	}
	s := &AuthService{store: store, opts: opts, log: log, now: time.Now}
	s.events = emitter{pub: pub, log: log, now: func() time.Time { return s.now() }}
	return s
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) issue(v model.Viewer) (Session, error) {
	tok, err := utils.NewAccessToken(s.opts.Secret, v.ID, v.Email, v.Role.String(), s.opts.TokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok.Token, ExpiresAt: tok.Exp, Viewer: v}, nil
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, r model.Registration) (Session, error) {
	const op = "service.AuthService.Register"

	email := NormalizeEmail(r.Email)
	hash, err := utils.HashPassword(r.Password, s.opts.BcryptCost)
	if err != nil {
		return Session{}, apperr.Internal(op, err)
	}
	fee := model.DefaultMonthlyFee
	if r.MonthlyFee != nil {
		fee = *r.MonthlyFee
	}
	seriesID := r.SeriesID
	v := model.Viewer{
		Email:        email,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		MonthlyFee:   fee,
		SeriesID:     &seriesID,
		CountryID:    r.CountryID,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}

	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		taken, err := q.EmailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already registered")
		}
		ok, err := q.SeriesExists(ctx, r.SeriesID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidReference("invalid series ID")
		}
		ok, err = q.CountryExists(ctx, r.CountryID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidReference("invalid country ID")
		}
		id, err := q.InsertViewer(ctx, v)
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict("email already registered")
		}
		if err != nil {
			return err
		}
		v.ID = id
		return nil
	})
	if err != nil {
		return Session{}, storeErr(op, err, "")
	}

	sess, err := s.issue(v)
	if err != nil {
		return Session{}, apperr.Internal(op, err)
	}
	s.log.WithFields(logrus.Fields{"op": op, "viewer_id": v.ID}).Info("viewer registered")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventViewerRegistered, ViewerID: v.ID, SeriesID: r.SeriesID})
	return sess, nil
}

// dummy returns a hash to compare against when the email is unknown, so
// both failure paths cost one bcrypt comparison.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("not-a-real-password-0", s.opts.BcryptCost)
	})
	return s.dummyHash
}

const msgBadLogin = "invalid email or password"

// Login verifies credentials. Unknown email and wrong password fail the
// same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	const op = "service.AuthService.Login"

	v, err := s.store.ViewerByEmail(ctx, NormalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.VerifyPassword(s.dummy(), password)
		return Session{}, apperr.InvalidCredentials(msgBadLogin)
	case err != nil:
		return Session{}, apperr.Internal(op, err)
	}
	if !utils.VerifyPassword(v.PasswordHash, password) {
		return Session{}, apperr.InvalidCredentials(msgBadLogin)
	}
	sess, err := s.issue(v)
	if err != nil {
		return Session{}, apperr.Internal(op, err)
	}
	return sess, nil
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, viewerID uint64) (model.Viewer, error) {
	v, err := s.store.ViewerByID(ctx, viewerID)
	if err != nil {
		return model.Viewer{}, storeErr("service.AuthService.Me", err, "viewer not found")
	}
	return v, nil
}

// UpdateProfile applies a partial update to the caller's own profile.
func (s *AuthService) UpdateProfile(ctx context.Context, viewerID uint64, p model.ViewerPatch) (model.Viewer, error) {
	const op = "service.AuthService.UpdateProfile"
	if p.Empty() {
		return model.Viewer{}, apperr.Validation("no fields to update")
	}
	var out model.Viewer
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if err := q.UpdateViewer(ctx, viewerID, p); err != nil {
			return err
		}
		v, err := q.ViewerByID(ctx, viewerID)
		out = v
		return err
	})
	if err != nil {
		return model.Viewer{}, storeErr(op, err, "viewer not found")
	}
	return out, nil
}

// ChangePassword replaces the caller's password after checking the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, viewerID uint64, in PasswordChange) error {
	const op = "service.AuthService.ChangePassword"

	v, err := s.store.ViewerByID(ctx, viewerID)
	if err != nil {
		return storeErr(op, err, "viewer not found")
	}
	if !utils.VerifyPassword(v.PasswordHash, in.Current) {
		return apperr.InvalidCredentials("current password is incorrect")
	}
	hash, err := utils.HashPassword(in.New, s.opts.BcryptCost)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if err := s.store.UpdatePassword(ctx, viewerID, hash); err != nil {
		return storeErr(op, err, "viewer not found")
	}
	s.log.WithFields(logrus.Fields{"op": op, "viewer_id": viewerID}).Info("password changed")
	return nil
}

// DeleteAccount removes the caller together with their watch history and
// feedback, all in one transaction.
func (s *AuthService) DeleteAccount(ctx context.Context, viewerID uint64) error {
	const op = "service.AuthService.DeleteAccount"
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		if err := q.DeleteWatchHistoryByViewer(ctx, viewerID); err != nil {
			return err
		}
		if err := q.DeleteFeedbackByViewer(ctx, viewerID); err != nil {
			return err
		}
		return q.DeleteViewer(ctx, viewerID)
	})
	if err != nil {
		return storeErr(op, err, "viewer not found")
	}
	s.log.WithFields(logrus.Fields{"op": op, "viewer_id": viewerID}).Info("account deleted")
	s.events.emit(ctx, queue.ActivityEvent{Type: queue.EventViewerDeleted, ViewerID: viewerID})
	return nil
}
