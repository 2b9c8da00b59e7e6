package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"mailforge/internal/domain/users"
	"mailforge/internal/infra/mailer"
)

type fakeUserStore struct {
	mu      sync.Mutex
	nextID  uint
	nextTok uint
	users   map[uint]*users.User
	tokens  []users.VerificationToken
}

func newFakeUserStore(seed ...users.User) *fakeUserStore {
	s := &fakeUserStore{users: map[uint]*users.User{}}
	for _, u := range seed {
		u := u
		if u.ID == 0 {
			s.nextID++
			u.ID = s.nextID
		} else if u.ID > s.nextID {
			s.nextID = u.ID
		}
		s.users[u.ID] = &u
	}
	return s
}

func (s *fakeUserStore) get(id uint) users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return *u
	}
	return users.User{}
}

func (s *fakeUserStore) Create(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return errors.New("duplicate email")
		}
	}
	s.nextID++
	u.ID = s.nextID
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) Save(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) Update(_ context.Context, id uint, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return users.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "is_verified":
			u.IsVerified = v.(bool)
		case "password":
			p := v.(string)
			u.Password = &p
		case "oidc_refresh_token":
			if v == nil {
				u.OIDCRefreshToken = nil
			} else {
				rt := v.(string)
				u.OIDCRefreshToken = &rt
			}
		case "last_login_at":
			t := v.(time.Time)
			u.LastLoginAt = &t
		case "last_ip":
			u.LastIP = v.(string)
		case "last_user_agent":
			u.LastUserAgent = v.(string)
		case "last_platform":
			u.LastPlatform = v.(string)
		case "last_screen":
			u.LastScreen = v.(string)
		case "last_timezone":
			u.LastTimezone = v.(string)
		case "last_language":
			u.LastLanguage = v.(string)
		}
	}
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id uint) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return users.User{}, users.ErrNotFound
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (s *fakeUserStore) FindByOIDCSubject(_ context.Context, sub string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.OIDCSubject != nil && *u.OIDCSubject == sub {
			return *u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (s *fakeUserStore) ReplaceToken(_ context.Context, t *users.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tokens[:0]
	for _, existing := range s.tokens {
		if existing.UserID != t.UserID || existing.Type != t.Type {
			kept = append(kept, existing)
		}
	}
	s.nextTok++
	t.ID = s.nextTok
	s.tokens = append(kept, *t)
	return nil
}

func (s *fakeUserStore) FindToken(_ context.Context, token, typ string) (users.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == token && t.Type == typ {
			return t, nil
		}
	}
	return users.VerificationToken{}, users.ErrNotFound
}

func (s *fakeUserStore) DeleteToken(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tokens {
		if t.ID == id {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeUserStore) tokenFor(userID uint, typ string) (users.VerificationToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.UserID == userID && t.Type == typ {
			return t, true
		}
	}
	return users.VerificationToken{}, false
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) messages() []mailer.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.Message(nil), r.sent...)
}
