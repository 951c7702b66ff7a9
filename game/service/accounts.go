package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/tictactoe-arena/auth"
	"github.com/wricardo/tictactoe-arena/store"
)

// DefaultRankingLimit is the number of players returned by Ranking
const DefaultRankingLimit = 20

var (
	ErrInvalidNick     = errors.New("nick is invalid")
	ErrInvalidEmail    = errors.New("email is invalid")
	ErrInvalidPassword = errors.New("password is required")
	ErrEmailTaken      = errors.New("email already in database")
	ErrNickTaken       = errors.New("this nick is taken")
	ErrBadCredentials  = errors.New("user not found")
	ErrGuestProfile    = errors.New("guests have no profile")
)

// GuestNickError reports a nick held by a guest reservation
type GuestNickError struct {
	Remaining time.Duration
}

func (e *GuestNickError) Error() string {
	return fmt.Sprintf("this nick is currently taken by guest, it'll be valid for the next %.2fh", e.Remaining.Hours())
}

// AccountOptions sets token lifetimes
type AccountOptions struct {
	UserTokenTTL  time.Duration
	GuestTokenTTL time.Duration
	GuestTTL      time.Duration
}

// Profile is the public view of a registered user
type Profile struct {
	Nick  string      `json:"nick"`
	Stats store.Stats `json:"stats"`
}

// Accounts registers users, logs them in and issues guest identities
type Accounts struct {
	store  store.Store
	tokens TokenSigner
	opts   AccountOptions
	now    func() time.Time
}

// NewAccounts creates the account service
func NewAccounts(s store.Store, tokens TokenSigner, opts AccountOptions) *Accounts {
	if opts.UserTokenTTL <= 0 {
		opts.UserTokenTTL = 14 * 24 * time.Hour
	}
	if opts.GuestTokenTTL <= 0 {
		opts.GuestTokenTTL = 24 * time.Hour
	}
	if opts.GuestTTL <= 0 {
		opts.GuestTTL = 24 * time.Hour
	}
	return &Accounts{store: s, tokens: tokens, opts: opts, now: time.Now}
}

// Register creates a user and returns a token for it
func (a *Accounts) Register(ctx context.Context, nick, email, password string) (string, error) {
	nick = strings.TrimSpace(nick)
	email = strings.TrimSpace(email)
	if !validNick(nick) {
		return "", ErrInvalidNick
	}
	if !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	if password == "" {
		return "", ErrInvalidPassword
	}

	if _, err := a.store.GetUserByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := a.store.GetUserByNick(ctx, nick); err == nil {
		return "", ErrNickTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check nick: %w", err)
	}
	if err := a.checkGuest(ctx, nick); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	err = a.store.CreateUser(ctx, store.User{
		Nick:         nick,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    a.now(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return "", ErrNickTaken
	}
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return a.tokens.Sign(nick, email, a.opts.UserTokenTTL)
}

// Login checks credentials. An identifier containing "@" is an email.
func (a *Accounts) Login(ctx context.Context, identifier, password string) (string, error) {
	var (
		u   store.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = a.store.GetUserByEmail(ctx, identifier)
	} else {
		u, err = a.store.GetUserByNick(ctx, identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if !auth.ComparePassword(u.PasswordHash, password) {
		return "", ErrBadCredentials
	}
	return a.tokens.Sign(u.Nick, u.Email, a.opts.UserTokenTTL)
}

// Guest reserves nick for a guest and returns a short-lived token
func (a *Accounts) Guest(ctx context.Context, nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	if !validNick(nick) {
		return "", ErrInvalidNick
	}
	if _, err := a.store.GetUserByNick(ctx, nick); err == nil {
		return "", ErrNickTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check nick: %w", err)
	}
	if err := a.checkGuest(ctx, nick); err != nil {
		return "", err
	}

	guest := store.Guest{Nick: nick, ExpiresAt: a.now().Add(a.opts.GuestTTL)}
	if err := a.store.PutGuest(ctx, guest); err != nil {
		return "", fmt.Errorf("failed to store guest: %w", err)
	}
	return a.tokens.Sign(nick, "", a.opts.GuestTokenTTL)
}

// checkGuest fails while an unexpired guest holds nick and drops expired ones
func (a *Accounts) checkGuest(ctx context.Context, nick string) error {
	g, err := a.store.GetGuest(ctx, nick)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check guest: %w", err)
	}
	now := a.now()
	if !g.Expired(now) {
		return &GuestNickError{Remaining: g.ExpiresAt.Sub(now)}
	}
	if err := a.store.DeleteGuest(ctx, nick); err != nil {
		return fmt.Errorf("failed to drop expired guest: %w", err)
	}
	return nil
}

// Profile returns the profile of the user identified by token
func (a *Accounts) Profile(ctx context.Context, token string) (Profile, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return Profile{}, err
	}
	if claims.Guest() {
		return Profile{}, ErrGuestProfile
	}
	u, err := a.store.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return Profile{Nick: u.Nick, Stats: u.Stats}, nil
}

// ProfileByNick returns the public profile of nick
func (a *Accounts) ProfileByNick(ctx context.Context, nick string) (Profile, error) {
	u, err := a.store.GetUserByNick(ctx, nick)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Nick: u.Nick, Stats: u.Stats}, nil
}

// Ranking returns the top players by wins. A non-positive limit uses
// DefaultRankingLimit.
func (a *Accounts) Ranking(ctx context.Context, limit int) ([]store.RankEntry, error) {
	if limit <= 0 || limit > DefaultRankingLimit {
		limit = DefaultRankingLimit
	}
	entries, err := a.store.Ranking(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	if entries == nil {
		entries = []store.RankEntry{}
	}
	return entries, nil
}

func validNick(nick string) bool {
	return nick != "" && nick != SystemSender && !strings.Contains(nick, "@")
}
