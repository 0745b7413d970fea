package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oksasatya/house-marketplace/config"
	"github.com/oksasatya/house-marketplace/internal/domain/entity"
	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
	"github.com/oksasatya/house-marketplace/pkg/mailer"
)

type stubGoogle struct {
	id  GoogleIdentity
	err error
}

func (g stubGoogle) Verify(ctx context.Context, token string) (GoogleIdentity, error) {
	return g.id, g.err
}

func newUserService(google IDTokenVerifier) (*Service, *memUsers, *memJobs) {
	users := newMemUsers()
	jobs := &memJobs{}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	cfg := &config.Config{AppName: "house-marketplace", MailSendEnabled: true}
	dir := session.NewDirectory(nil, "auth:state", nil)
	return NewService(users, jwt, nil, dir, google, jobs, cfg, nil), users, jobs
}

func TestSignUpThenLogin(t *testing.T) {
	svc, _, jobs := newUserService(nil)
	ctx := context.Background()

	resp, pair, err := svc.SignUp(ctx, "Jane Doe", "Jane@Example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if resp.Email != "jane@example.com" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected sign-up result %+v", resp)
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].(mailer.EmailJob).Data["Type"] != "welcome" {
		t.Fatalf("expected welcome email, got %v", jobs.jobs)
	}

	if _, _, err := svc.SignUp(ctx, "Jane Again", "jane@example.com", "otherpass"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "jane@example.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "JANE@example.com", "s3cretpass"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestIssueTokensPublishesSession(t *testing.T) {
	svc, _, _ := newUserService(nil)
	ctx := context.Background()
	resp, pair, err := svc.SignUp(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	u, st := svc.Sessions.Resolve(ctx, resp.UserID, claims.SessionID)
	if st != session.Authenticated || u.Name != "Jane Doe" {
		t.Fatalf("expected live session, got %v %+v", st, u)
	}

	// a second sign-in replaces the first session
	if _, _, err := svc.Login(ctx, "jane@example.com", "s3cretpass"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, st := svc.Sessions.Resolve(ctx, resp.UserID, claims.SessionID); st != session.Unauthenticated {
		t.Fatalf("expected old session to be replaced, got %v", st)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, _ := newUserService(nil)
	ctx := context.Background()
	_, pair, err := svc.SignUp(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	next, uid, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if uid == "" || next.RefreshToken == pair.RefreshToken {
		t.Fatal("expected rotated tokens")
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old refresh token to be rejected, got %v", err)
	}
}

func TestSignOutEndsSession(t *testing.T) {
	svc, _, _ := newUserService(nil)
	ctx := context.Background()
	resp, pair, _ := svc.SignUp(ctx, "Jane Doe", "jane@example.com", "s3cretpass")
	if err := svc.SignOut(ctx, resp.UserID); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	claims, _ := svc.JWT.ParseAccessToken(pair.AccessToken)
	if _, st := svc.Sessions.Resolve(ctx, resp.UserID, claims.SessionID); st != session.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", st)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected refresh to fail after sign-out, got %v", err)
	}
}

func TestUpdateProfilePublishesName(t *testing.T) {
	svc, _, _ := newUserService(nil)
	ctx := context.Background()
	resp, pair, _ := svc.SignUp(ctx, "Jane Doe", "jane@example.com", "s3cretpass")

	var events []session.EventKind
	cancel := svc.Sessions.Watch(func(ev session.Event) { events = append(events, ev.Kind) })
	defer cancel()

	if _, err := svc.UpdateProfile(ctx, resp.UserID, "Jane Smith"); err != nil {
		t.Fatalf("update: %v", err)
	}
	claims, _ := svc.JWT.ParseAccessToken(pair.AccessToken)
	u, st := svc.Sessions.Resolve(ctx, resp.UserID, claims.SessionID)
	if st != session.Authenticated || u.Name != "Jane Smith" {
		t.Fatalf("expected renamed live session, got %v %+v", st, u)
	}
	if len(events) != 1 || events[0] != session.Updated {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestGoogleSignInCreatesUserOnce(t *testing.T) {
	svc, users, _ := newUserService(stubGoogle{id: GoogleIdentity{Subject: "g-1", Email: "sam@gmail.com", Name: "Sam", EmailVerified: true}})
	ctx := context.Background()

	first, _, err := svc.SignInWithGoogle(ctx, "token")
	if err != nil {
		t.Fatalf("google sign-in: %v", err)
	}
	second, _, err := svc.SignInWithGoogle(ctx, "token")
	if err != nil {
		t.Fatalf("second google sign-in: %v", err)
	}
	if first.UserID != second.UserID || len(users.byID) != 1 {
		t.Fatalf("expected a single user, got %d", len(users.byID))
	}
	u := users.byID[first.UserID]
	if u.Provider != entity.ProviderGoogle || u.HasPassword() {
		t.Fatalf("unexpected google user %+v", u)
	}
	if _, _, err := svc.Login(ctx, "sam@gmail.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("google account must not accept password login, got %v", err)
	}
}

func TestGoogleSignInRejected(t *testing.T) {
	for name, g := range map[string]IDTokenVerifier{
		"nil verifier":  nil,
		"bad token":     stubGoogle{err: errors.New("token expired")},
		"unverified":    stubGoogle{id: GoogleIdentity{Email: "x@gmail.com"}},
		"missing email": stubGoogle{id: GoogleIdentity{EmailVerified: true}},
	} {
		svc, _, _ := newUserService(g)
		if _, _, err := svc.SignInWithGoogle(context.Background(), "token"); !errors.Is(err, ErrGoogleSignIn) {
			t.Fatalf("%s: expected ErrGoogleSignIn, got %v", name, err)
		}
	}
}
