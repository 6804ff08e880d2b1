// Package identitycontainer wires every identity-core bounded context
// (session, oauthflow, client, user, group, audit) into one composed
// dependency graph, following the order repos -> services -> handlers ->
// middleware.
package identitycontainer

import (
	"context"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/config"
	"github.com/Abraxas-365/identity-core/pkg/identity/audit/auditinfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/audit/auditsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/client/clientapi"
	"github.com/Abraxas-365/identity-core/pkg/identity/client/clientinfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/client/clientsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/group/groupinfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/group/groupsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthapi"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthapi/ssoapi"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthinfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessioninfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/adminapi"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/userinfra"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/Abraxas-365/identity-core/pkg/ratelimit"
	"github.com/jmoiron/sqlx"
)

// Deps are the external dependencies this bounded context requires. No
// hidden globals, no ambient state — everything comes through here.
type Deps struct {
	DB  *sqlx.DB
	Cfg *config.Config
}

// Container is the public surface of the identity module: what cmd/ needs
// to register routes, mount middleware, and start background workers.
type Container struct {
	UserService    *usersrv.Service
	ClientService  *clientsrv.Service
	GroupService   *groupsrv.Service
	AuditService   *auditsrv.Service
	SessionService *sessionsrv.Service
	OAuthService   *oauthsrv.Service

	OAuthHandlers  *oauthapi.Handlers
	SSOHandlers    *ssoapi.Handlers
	ClientHandlers *clientapi.Handlers
	AdminHandlers  *adminapi.Handlers

	SessionMiddleware *sessionsrv.Middleware
	RateLimiter       *ratelimit.Limiter
}

// New constructs the entire identity dependency graph.
func New(deps Deps) *Container {
	logx.Info("initializing identity container")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	clientRepo := clientinfra.NewPostgresApplicationRepository(deps.DB)
	groupRepo := groupinfra.NewPostgresGroupRepository(deps.DB)
	accessRepo := groupinfra.NewPostgresAccessRepository(deps.DB)
	codeRepo := oauthinfra.NewPostgresCodeRepository(deps.DB)
	tokenRepo := oauthinfra.NewPostgresTokenRepository(deps.DB)
	sessionRepo := sessioninfra.NewPostgresSessionRepository(deps.DB)
	auditRepo := auditinfra.NewPostgresAuditRepository(deps.DB)
	loginRepo := auditinfra.NewPostgresLoginRepository(deps.DB)

	// ── Domain services ──────────────────────────────────────────────────

	c.UserService = usersrv.NewService(userRepo)
	c.ClientService = clientsrv.NewService(clientRepo)
	c.GroupService = groupsrv.NewService(groupRepo, accessRepo, clientRepo)
	c.AuditService = auditsrv.NewService(auditRepo, loginRepo)
	c.SessionService = sessionsrv.NewService(sessionRepo, userRepo, deps.Cfg.Session.TTL)

	idSigner := oauthflow.NewIDTokenSigner(deps.Cfg.OAuth.SigningSecret, deps.Cfg.OAuth.Issuer, deps.Cfg.OAuth.AccessTokenTTL)
	c.OAuthService = oauthsrv.NewService(
		codeRepo, tokenRepo, clientRepo, userRepo, idSigner,
		deps.Cfg.OAuth.CodeTTL, deps.Cfg.OAuth.AccessTokenTTL, deps.Cfg.OAuth.RefreshTokenTTL,
	)

	// ── HTTP handlers ────────────────────────────────────────────────────

	txRunner := kernel.NewTxRunner(deps.DB)

	c.OAuthHandlers = oauthapi.NewHandlers(c.OAuthService, c.UserService, deps.Cfg.OAuth.Issuer, "/auth/sso/login")
	c.ClientHandlers = clientapi.NewHandlers(c.ClientService, c.AuditService, txRunner)
	c.AdminHandlers = adminapi.NewHandlers(c.UserService, c.GroupService, c.ClientService, c.AuditService, txRunner)

	c.SSOHandlers = ssoapi.NewHandlers(ssoapi.Config{
		DiscoveryURL:      deps.Cfg.SSO.DiscoveryURL,
		ClientID:          deps.Cfg.SSO.ClientID,
		ClientSecret:      deps.Cfg.SSO.ClientSecret,
		RedirectURL:       deps.Cfg.SSO.RedirectURL,
		ProbeTimeout:      deps.Cfg.SSO.ProbeTimeout,
		EmailClaim:        deps.Cfg.SSO.EmailClaim,
		GroupsClaim:       deps.Cfg.SSO.GroupsClaim,
		DisplayClaim:      deps.Cfg.SSO.DisplayClaim,
		DepartmentAttr:    deps.Cfg.SSO.DepartmentAttr,
		SessionCookieName: deps.Cfg.Session.CookieName,
		SessionTTL:        deps.Cfg.Session.TTL,
		DefaultReturnTo:   "/",
	}, c.SessionService, c.UserService)

	if deps.Cfg.SSO.DiscoveryURL != "" {
		if err := c.SSOHandlers.Connect(context.Background()); err != nil {
			logx.WithError(err).Warn("failed to discover upstream SSO provider at startup; SSO login will fail until it is reachable")
		} else {
			logx.Info("  connected to upstream SSO provider")
		}
	} else {
		logx.Warn("  SSO_DISCOVERY_URL unset; SSO login is disabled")
	}

	// ── Middleware ───────────────────────────────────────────────────────

	c.SessionMiddleware = sessionsrv.NewMiddleware(c.SessionService, deps.Cfg.Session.CookieName)
	c.RateLimiter = ratelimit.New(ratelimit.Budgets{
		Auth:    deps.Cfg.RateLimit.AuthBudget,
		Token:   deps.Cfg.RateLimit.TokenBudget,
		Admin:   deps.Cfg.RateLimit.AdminBudget,
		Default: deps.Cfg.RateLimit.DefaultBudget,
		Period:  time.Duration(deps.Cfg.RateLimit.WindowSeconds) * time.Second,
	})

	logx.Info("identity container initialized")
	return c
}

// StartBackgroundServices runs the expired-code/token sweeper, the session
// sweeper, and the rate limiter's window sweeper until ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context, cfg *config.Config) {
	ratelimit.StartSweeper(ctx, c.RateLimiter, time.Minute)

	go runEvery(ctx, cfg.OAuth.SweepInterval, func() {
		codes, tokens, err := c.OAuthService.Sweep(ctx)
		if err != nil {
			logx.WithError(err).Error("oauth sweep failed")
			return
		}
		if codes > 0 || tokens > 0 {
			logx.Infof("swept %d expired codes, %d expired tokens", codes, tokens)
		}
	})

	go runEvery(ctx, cfg.Session.CleanupInterval, func() {
		n, err := c.SessionService.DeleteExpired(ctx)
		if err != nil {
			logx.WithError(err).Error("session cleanup failed")
			return
		}
		if n > 0 {
			logx.Infof("swept %d expired sessions", n)
		}
	})

	logx.Info("  background sweepers started")
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
