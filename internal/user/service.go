package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"devconnect/internal/errs"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}

type Service struct {
	repo      Store
	jwtSecret string
	tokenTTL  time.Duration
}

type claims struct {
	FirstName string `json:"firstName"`
	jwt.RegisteredClaims
}

func NewService(repo Store, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: secret,
		tokenTTL:  tokenTTL,
	}
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*User, error) {
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, errs.InvalidArg("firstName is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.InvalidArg("email is not valid")
	}
	if len(req.Password) < 8 {
		return nil, errs.InvalidArg("password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "hash password", err)
	}

	photo := req.PhotoURL
	if photo == "" {
		photo = DefaultPhotoURL
	}
	u := &User{
		ID:        uuid.New(),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  string(hashed),
		Age:       req.Age,
		Gender:    req.Gender,
		About:     req.About,
		PhotoURL:  photo,
		Skills:    req.Skills,
		Links:     req.Links,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns the user plus a signed session token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", errs.InvalidArg("email and password are required")
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeNotFound {
			return nil, "", errs.Unauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, "", errs.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) issueToken(u *User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		FirstName: u.FirstName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    "devconnect",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "sign token", err)
	}
	return ss, nil
}

// ValidateToken verifies a session token and returns the holder's id and
// first name. It satisfies the auth middleware's TokenValidator.
func (s *Service) ValidateToken(tokenString string) (uuid.UUID, string, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", errs.Unauthorized("invalid or expired session")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", errs.Unauthorized("invalid session subject")
	}
	return id, c.FirstName, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd *ProfileUpdate) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		if strings.TrimSpace(*upd.FirstName) == "" {
			return nil, errs.InvalidArg("firstName cannot be empty")
		}
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Age != nil {
		if *upd.Age < 0 || *upd.Age > 150 {
			return nil, errs.InvalidArg("age is out of range")
		}
		u.Age = *upd.Age
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	if upd.About != nil {
		u.About = *upd.About
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	if upd.Skills != nil {
		u.Skills = *upd.Skills
	}
	if upd.Links != nil {
		u.Links = *upd.Links
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
