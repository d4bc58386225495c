package session

import (
	"context"
	"testing"
	"time"

	domain "marquee/internal/domain/session"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	opLogin = iota
	opLoginNoRefresh
	opLogout
	opRefreshOK
	opRefreshFail
	opExpire
	opCount
)

func applyOp(f *fixture, op int) {
	ctx := context.Background()
	creds := domain.Credentials{Email: "ada@example.com", Password: "pw"}
	switch op {
	case opLogin:
		f.api.loginResult = &domain.LoginResult{AccessToken: "a", RefreshToken: "r", User: testUser}
		_ = f.service.Login(ctx, creds)
	case opLoginNoRefresh:
		f.api.loginResult = &domain.LoginResult{AccessToken: "b", User: testUser}
		_ = f.service.Login(ctx, creds)
	case opLogout:
		f.service.Logout(ctx)
	case opRefreshOK:
		f.api.refreshErr = nil
		f.api.refreshRes = &domain.RefreshResult{AccessToken: "c"}
		_ = f.service.Refresh(ctx)
	case opRefreshFail:
		f.api.refreshErr = &domain.StatusError{Op: "refresh", Status: 401}
		_ = f.service.Refresh(ctx)
	case opExpire:
		f.service.Expire(ctx)
	}
}

func TestSessionInvariant_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("user and token are set together and mirror the store after any operation sequence",
		prop.ForAll(
			func(ops []int) bool {
				f := newFixture()
				for _, op := range ops {
					applyOp(f, op)
					st := f.service.State()
					if (st.User == nil) != (st.AccessToken == "") {
						return false
					}
					rec, stored := f.store.Load(context.Background())
					if stored != st.Authenticated() {
						return false
					}
					if stored && rec.AccessToken != st.AccessToken {
						return false
					}
				}
				return true
			},
			gen.SliceOf(gen.IntRange(0, opCount-1)),
		))

	properties.Property("logout any number of times ends in the same empty state",
		prop.ForAll(
			func(n int) bool {
				f := newFixture()
				f.seed(time.Hour, "r1")
				for i := 0; i < n; i++ {
					f.service.Logout(context.Background())
				}
				_, stored := f.store.Load(context.Background())
				return !f.service.State().Authenticated() && !stored && f.nav.last() == domain.ViewLogin
			},
			gen.IntRange(1, 5),
		))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestExpirationBand_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)
	cfg := DefaultMonitorConfig()

	properties.Property("sessions beyond the warning threshold are never prompted",
		prop.ForAll(
			func(secs int64) bool {
				f := newFixture()
				f.seed(time.Duration(secs)*time.Second, "r1")
				return f.service.CheckExpiration(context.Background()) == OutcomeFresh && f.prompter.count() == 0
			},
			gen.Int64Range(int64((cfg.Threshold+cfg.Debounce)/time.Second)+1, 4*3600),
		))

	properties.Property("sessions inside the warning window are prompted exactly once",
		prop.ForAll(
			func(secs int64) bool {
				f := newFixture()
				f.seed(time.Duration(secs)*time.Second, "r1")
				f.prompter.answer = false
				outcome := f.service.CheckExpiration(context.Background())
				return outcome == OutcomeLoggedOut && f.prompter.count() == 1
			},
			gen.Int64Range(int64(cfg.Debounce/time.Second)+1, int64((cfg.Threshold+cfg.Debounce)/time.Second)),
		))

	properties.Property("sessions past their deadline are expired without a prompt",
		prop.ForAll(
			func(secs int64) bool {
				f := newFixture()
				f.seed(-time.Duration(secs)*time.Second, "r1")
				return f.service.CheckExpiration(context.Background()) == OutcomeExpired && f.prompter.count() == 0
			},
			gen.Int64Range(0, 3600),
		))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
