package service

import (
	"errors"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/hash"
	"docqa-go/pkg/token"

	"gorm.io/gorm"
)

// TokenPair 是一次登录或刷新签发的令牌对。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService 负责用户注册、登录和令牌签发。
type UserService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) *UserService {
	return &UserService{userRepo: userRepo, jwtManager: jwtManager}
}

// Register 创建新用户，用户名冲突返回 ErrUserExists。
func (s *UserService) Register(username, password string) (*model.User, error) {
	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: username,
		Password: hashed,
		Role:     "USER",
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 校验凭证并签发令牌对。
// 用户不存在和密码错误返回同一个错误，不向调用方泄露区别。
func (s *UserService) Login(username, password string) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidPassword
		}
		return nil, nil, err
	}
	if !hash.CheckPassword(password, user.Password) {
		return nil, nil, ErrInvalidPassword
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh 校验刷新令牌并签发新的令牌对。
func (s *UserService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyToken(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.issueTokens(user)
}

// Profile 返回用户信息。
func (s *UserService) Profile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) issueTokens(user *model.User) (*TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
