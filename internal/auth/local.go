package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/peterbourgon/diskv/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikbrunner/bmsync/internal/logger"
)

const (
	sessionKey = "session"
	issuer     = "bm"

	// DefaultTTL is how long a session stays valid after sign-in.
	DefaultTTL = 12 * time.Hour
)

var _ Provider = (*Local)(nil)

// Account is a configured user with a bcrypt password hash.
type Account struct {
	ID           string `mapstructure:"id"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// LocalOptions configures a Local provider.
type LocalOptions struct {
	Accounts   []Account
	Secret     string
	TTL        time.Duration
	SessionDir string
	Log        logger.Logger
	// Now overrides the clock used for token timestamps.
	Now func() time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Local checks credentials against configured accounts and keeps the
// session as a signed token on disk, so it survives between commands.
type Local struct {
	accounts map[string]Account
	secret   []byte
	ttl      time.Duration
	sessions *diskv.Diskv
	now      func() time.Time
	log      logger.Logger

	mu        sync.Mutex
	current   *User
	expiresAt time.Time
}

// NewLocal creates the provider and restores a saved session if it is
// still valid.
func NewLocal(opts LocalOptions) (*Local, error) {
	if opts.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if opts.SessionDir == "" {
		return nil, errors.New("auth session dir is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	l := &Local{
		accounts: make(map[string]Account, len(opts.Accounts)),
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		sessions: diskv.New(diskv.Options{BasePath: opts.SessionDir}),
		now:      opts.Now,
		log:      opts.Log,
	}
	for _, a := range opts.Accounts {
		if a.ID == "" || a.Email == "" {
			return nil, fmt.Errorf("account %q: id and email are required", a.Email)
		}
		l.accounts[normalizeEmail(a.Email)] = a
	}

	if err := l.restore(); err != nil {
		l.log.Warn("discarding saved session", logger.Error(err))
		_ = l.sessions.Erase(sessionKey)
	}
	return l, nil
}

func (l *Local) restore() error {
	raw, err := l.sessions.Read(sessionKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	c, err := l.parse(string(raw))
	if err != nil {
		return err
	}
	if _, ok := l.accounts[normalizeEmail(c.Email)]; !ok {
		return fmt.Errorf("%w: account %s no longer configured", ErrNotSignedIn, c.Email)
	}

	l.mu.Lock()
	l.current = &User{ID: c.Subject, Email: c.Email}
	l.expiresAt = c.ExpiresAt.Time
	l.mu.Unlock()
	return nil
}

func (l *Local) parse(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return l.secret, nil
	}, jwt.WithTimeFunc(l.now), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token without subject", ErrNotSignedIn)
	}
	return c, nil
}

// CurrentUser returns the signed-in user, or nil. An expired session is
// signed out.
func (l *Local) CurrentUser() *User {
	user, err := l.Require()
	if err != nil {
		return nil
	}
	return user
}

// Require returns the signed-in user or the reason there is none.
func (l *Local) Require() (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil, ErrNotSignedIn
	}
	if !l.now().Before(l.expiresAt) {
		l.log.Info("session expired", logger.String("email", l.current.Email))
		l.signOutLocked()
		return nil, ErrSessionExpired
	}
	u := *l.current
	return &u, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, ok := l.accounts[normalizeEmail(email)]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := l.now()
	expiresAt := now.Add(l.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	if err := l.sessions.Write(sessionKey, []byte(signed)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	user := &User{ID: account.ID, Email: account.Email}
	l.mu.Lock()
	l.current = user
	l.expiresAt = expiresAt
	l.mu.Unlock()

	l.log.Info("signed in", logger.String("email", account.Email))
	u := *user
	return &u, nil
}

func (l *Local) SignOut() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signOutLocked()
}

func (l *Local) signOutLocked() error {
	l.current = nil
	l.expiresAt = time.Time{}
	if !l.sessions.Has(sessionKey) {
		return nil
	}
	return l.sessions.Erase(sessionKey)
}

// HashPassword returns the bcrypt hash to put in an account's config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
