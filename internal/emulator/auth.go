package emulator

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrLoginUserNotFound         = errors.New("user not found")
	ErrLoginPasswordDoesNotMatch = errors.New("password does not match")
	ErrUserAlreadyExists         = errors.New("user already exists")
)

type (
	credentialsReq struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}

	sessionResp struct {
		AccessToken  string   `json:"access_token"`
		TokenType    string   `json:"token_type"`
		ExpiresIn    int64    `json:"expires_in"`
		ExpiresAt    int64    `json:"expires_at"`
		RefreshToken string   `json:"refresh_token"`
		User         userResp `json:"user"`
	}

	userResp struct {
		ID    string `json:"id"`
		Aud   string `json:"aud"`
		Role  string `json:"role"`
		Email string `json:"email"`
	}

	authError struct {
		Code      int    `json:"code"`
		ErrorCode string `json:"error_code"`
		Msg       string `json:"msg"`
	}

	Claims struct {
		Email     string `json:"email"`
		Role      string `json:"role"`
		SessionID string `json:"session_id"`
		jwt.RegisteredClaims
	}
)

// Register creates an auth user and its public profile row.
func (s *Server) Register(email, pass string) (string, error) {
	hash, err := s.bcryptGen(pass)
	if err != nil {
		return "", errors.Wrap(err, "bcryptGen")
	}

	id := uuid.New().String()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		count := int64(0)
		if res := tx.Model(&AuthUser{}).Where("email = ?", email).Count(&count); res.Error != nil {
			return res.Error
		}
		if count > 0 {
			return ErrUserAlreadyExists
		}
		if res := tx.Create(&AuthUser{ID: id, Email: email, EncryptedPassword: hash}); res.Error != nil {
			return errors.Wrap(res.Error, "create auth user")
		}
		if res := tx.Create(&User{ID: id, Email: email}); res.Error != nil {
			return errors.Wrap(res.Error, "create user")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) Login(email, pass string) (*sessionResp, error) {
	user := AuthUser{}
	res := s.db.Where("email = ?", email).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLoginUserNotFound
		}
		return nil, res.Error
	}

	if err := s.bcryptCheck(user.EncryptedPassword, pass); err != nil {
		return nil, ErrLoginPasswordDoesNotMatch
	}

	return s.issue(&user)
}

func (s *Server) issue(user *AuthUser) (*sessionResp, error) {
	session := AuthSession{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		RefreshToken: uuid.New().String(),
	}
	if res := s.db.Create(&session); res.Error != nil {
		return nil, errors.Wrap(res.Error, "create session")
	}

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:     user.Email,
		Role:      "authenticated",
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}

	return &sessionResp{
		AccessToken:  signed,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokenTTL / time.Second),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: session.RefreshToken,
		User:         toUserResp(user),
	}, nil
}

// authenticate validates a bearer token and its session. Expired tokens and
// revoked sessions are rejected.
func (s *Server) authenticate(c echo.Context) (*Claims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("missing bearer token")
	}
	if parts[1] == s.anonKey {
		return nil, nil
	}

	claims := Claims{}
	_, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}

	session := AuthSession{}
	res := s.db.Where("id = ? AND revoked = ?", claims.SessionID, false).First(&session)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "find session")
	}
	return &claims, nil
}

func (s *Server) Signup(c echo.Context) error {
	req := credentialsReq{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "bad_json", Msg: err.Error()})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "validation_failed", Msg: "email and password are required"})
	}

	if _, err := s.Register(req.Email, req.Password); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return c.JSON(http.StatusUnprocessableEntity, authError{Code: http.StatusUnprocessableEntity, ErrorCode: "user_already_exists", Msg: "User already registered"})
		}
		return err
	}

	session, err := s.Login(req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) Token(c echo.Context) error {
	req := credentialsReq{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "bad_json", Msg: err.Error()})
	}

	switch c.QueryParam("grant_type") {
	case "password":
		session, err := s.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrLoginUserNotFound) || errors.Is(err, ErrLoginPasswordDoesNotMatch) {
				return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "invalid_credentials", Msg: "Invalid login credentials"})
			}
			return err
		}
		return c.JSON(http.StatusOK, session)
	case "refresh_token":
		session, err := s.refresh(req.RefreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "refresh_token_not_found", Msg: "Invalid Refresh Token: Refresh Token Not Found"})
			}
			return err
		}
		return c.JSON(http.StatusOK, session)
	default:
		return c.JSON(http.StatusBadRequest, authError{Code: http.StatusBadRequest, ErrorCode: "validation_failed", Msg: "unsupported grant_type"})
	}
}

// refresh rotates the refresh token: the old session is revoked.
func (s *Server) refresh(token string) (*sessionResp, error) {
	session := AuthSession{}
	res := s.db.Where("refresh_token = ? AND revoked = ?", token, false).First(&session)
	if res.Error != nil {
		return nil, res.Error
	}
	user := AuthUser{}
	if res := s.db.First(&user, "id = ?", session.UserID); res.Error != nil {
		return nil, res.Error
	}
	if res := s.db.Model(&session).Update("revoked", true); res.Error != nil {
		return nil, errors.Wrap(res.Error, "revoke session")
	}
	return s.issue(&user)
}

func (s *Server) GetUser(c echo.Context) error {
	claims, err := s.authenticate(c)
	if err != nil || claims == nil {
		return c.JSON(http.StatusUnauthorized, authError{Code: http.StatusUnauthorized, ErrorCode: "bad_jwt", Msg: "invalid JWT"})
	}
	user := AuthUser{}
	if res := s.db.First(&user, "id = ?", claims.Subject); res.Error != nil {
		return c.JSON(http.StatusForbidden, authError{Code: http.StatusForbidden, ErrorCode: "user_not_found", Msg: "User from sub claim in JWT does not exist"})
	}
	return c.JSON(http.StatusOK, toUserResp(&user))
}

func (s *Server) Logout(c echo.Context) error {
	claims, err := s.authenticate(c)
	if err != nil || claims == nil {
		return c.JSON(http.StatusUnauthorized, authError{Code: http.StatusUnauthorized, ErrorCode: "bad_jwt", Msg: "invalid JWT"})
	}

	q := s.db.Model(&AuthSession{})
	if c.QueryParam("scope") == "local" {
		q = q.Where("id = ?", claims.SessionID)
	} else {
		q = q.Where("user_id = ?", claims.Subject)
	}
	if res := q.Update("revoked", true); res.Error != nil {
		return errors.Wrap(res.Error, "revoke sessions")
	}
	return c.NoContent(http.StatusNoContent)
}

func toUserResp(user *AuthUser) userResp {
	return userResp{
		ID:    user.ID,
		Aud:   "authenticated",
		Role:  "authenticated",
		Email: user.Email,
	}
}

func (s *Server) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), s.bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *Server) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
