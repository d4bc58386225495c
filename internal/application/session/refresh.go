package session

import (
	"context"

	domain "marquee/internal/domain/session"

	"github.com/rs/zerolog/log"
)

// Refresh exchanges the stored refresh token for a new access token and extends the deadline.
// Every failure ends in Logout; a result that arrives after a logout or a new login is discarded.
func (s *Service) Refresh(ctx context.Context) error {
	gen := s.currentGeneration()

	refreshToken, ok := s.store.RefreshToken(ctx)
	if !ok {
		log.Warn().Msg("refresh requested without a stored refresh token")
		if !s.logoutIfGeneration(ctx, gen, domain.LevelInfo, "You have been logged out.") {
			return domain.ErrStaleRefresh
		}
		return domain.ErrNoRefreshToken
	}

	res, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		if !s.logoutIfGeneration(ctx, gen, domain.LevelError, "Could not extend your session. Please log in again.") {
			log.Info().Err(err).Msg("ignoring failed refresh for a session that already ended")
			return domain.ErrStaleRefresh
		}
		log.Warn().Err(err).Msg("token refresh failed, logged out")
		return err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		log.Info().Msg("discarding refresh result for a session that already ended")
		return domain.ErrStaleRefresh
	}
	base, ok := s.refreshBase(ctx)
	if !ok {
		c := s.clearLocked(ctx)
		s.mu.Unlock()
		log.Warn().Msg("refresh succeeded but the session is gone, logging out")
		s.finishLogout(c, domain.LevelError, "Could not extend your session. Please log in again.")
		return domain.ErrStaleRefresh
	}
	user := base.WithDeadline(s.clock.Now().Add(s.cfg.RefreshLifetime))
	if err := s.store.Save(ctx, user, res.AccessToken, refreshToken); err != nil {
		log.Error().Err(err).Msg("persist refreshed session")
	}
	c := s.state.apply(SetSession{User: user, AccessToken: res.AccessToken})
	s.mu.Unlock()
	s.state.publish(c)

	log.Info().Str("user_id", user.ID).Int64("expiration_date", user.ExpirationDate).Msg("session refreshed")
	s.notifier.Notify(domain.LevelSuccess, "Your session has been extended.")
	return nil
}

// refreshBase picks the user record the new deadline is merged into: memory first, then the store
func (s *Service) refreshBase(ctx context.Context) (domain.User, bool) {
	if u := s.state.Current().User; u != nil {
		return *u, true
	}
	if u, ok := s.store.LoadUser(ctx); ok {
		return *u, true
	}
	return domain.User{}, false
}
