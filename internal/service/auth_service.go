package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"surveyengine/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthConfig holds host credentials and token settings
type AuthConfig struct {
	HostUsername string
	HostPassword string
	JWTSecret    string
	SessionTTL   time.Duration
}

// AuthService handles host and respondent authentication
type AuthService struct {
	hostUsername string
	hostPassword string
	jwtSecret    []byte
	sessionTTL   time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthConfig) *AuthService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &AuthService{
		hostUsername: cfg.HostUsername,
		hostPassword: cfg.HostPassword,
		jwtSecret:    []byte(cfg.JWTSecret),
		sessionTTL:   ttl,
	}
}

// Login validates credentials and returns a host token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.hostUsername || password != s.hostPassword {
		return nil, ErrInvalidCredentials
	}

	// one host account, so the id is stable across logins
	hostID := "host_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(username)).String()[:8]

	claims := &model.HostClaims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:  tokenString,
		HostID: hostID,
	}, nil
}

// ValidateHostToken validates a host JWT and returns claims
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.HostClaims{}, s.keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.HostClaims)
	if !ok || !token.Valid || claims.HostID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IssueSessionToken opens a new respondent session on a survey
func (s *AuthService) IssueSessionToken(sess model.Session) (string, model.Session, error) {
	if sess.Ref == "" {
		sess.Ref = uuid.New().String()
	}
	now := time.Now()
	claims := &model.RespondentClaims{
		SurveyID:   sess.SurveyID,
		SessionRef: sess.Ref,
		Recipient:  sess.Recipient,
		Language:   sess.Language,
		Dimensions: sess.Dimensions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", sess, err
	}
	return signed, sess, nil
}

// ValidateSessionToken validates a respondent JWT and returns its session
func (s *AuthService) ValidateSessionToken(tokenString string) (*model.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.RespondentClaims{}, s.keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.RespondentClaims)
	if !ok || !token.Valid || claims.SessionRef == "" || claims.SurveyID == "" {
		return nil, ErrInvalidToken
	}

	sess := claims.Session()
	return &sess, nil
}

func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.jwtSecret, nil
}
