package service

import (
	"testing"

	"docqa-go/internal/model"
	"docqa-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	user.ID = uint(len(r.users) + 1)
	r.users[user.Username] = user
	return nil
}

func (r *fakeUserRepo) FindByUsername(username string) (*model.User, error) {
	u, found := r.users[username]
	if !found {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByID(userID uint) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(user *model.User) error {
	r.users[user.Username] = user
	return nil
}

func newUserService() (*UserService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	return NewUserService(repo, jwtManager), repo
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("注册成功后密码被散列", func(t *testing.T) {
		t.Parallel()
		svc, repo := newUserService()

		user, err := svc.Register("alice", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "secret123", repo.users["alice"].Password)
	})

	t.Run("用户名冲突返回 ErrUserExists", func(t *testing.T) {
		t.Parallel()
		svc, _ := newUserService()
		_, err := svc.Register("alice", "secret123")
		require.NoError(t, err)

		_, err = svc.Register("alice", "another")
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("正确凭证签发令牌对", func(t *testing.T) {
		t.Parallel()
		svc, _ := newUserService()
		_, err := svc.Register("alice", "secret123")
		require.NoError(t, err)

		user, pair, err := svc.Login("alice", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("密码错误与用户不存在返回同一错误", func(t *testing.T) {
		t.Parallel()
		svc, _ := newUserService()
		_, err := svc.Register("alice", "secret123")
		require.NoError(t, err)

		_, _, errWrongPass := svc.Login("alice", "wrong")
		_, _, errNoUser := svc.Login("nobody", "whatever")
		assert.ErrorIs(t, errWrongPass, ErrInvalidPassword)
		assert.ErrorIs(t, errNoUser, ErrInvalidPassword)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("合法的刷新令牌换发新令牌对", func(t *testing.T) {
		t.Parallel()
		svc, _ := newUserService()
		_, err := svc.Register("alice", "secret123")
		require.NoError(t, err)
		_, pair, err := svc.Login("alice", "secret123")
		require.NoError(t, err)

		newPair, err := svc.Refresh(pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newPair.AccessToken)
	})

	t.Run("非法令牌被拒绝", func(t *testing.T) {
		t.Parallel()
		svc, _ := newUserService()
		_, err := svc.Refresh("garbage-token")
		assert.Error(t, err)
	})
}
