package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/bookshelf/internal/model"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(exp)}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func userToken(tok string) model.UserToken {
	return model.UserToken{
		Token: tok,
		User:  model.AuthUser{ID: uuid.Must(uuid.NewV4()), Name: "alice", Roles: []string{"user"}},
	}
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.True(t, exp.Equal(ExpiryFromJWT(signed(t, exp))))
	require.True(t, ExpiryFromJWT("not-a-jwt").IsZero())
}

func TestStore_MemoryOnly(t *testing.T) {
	s := NewStore(nil, zaptest.NewLogger(t))
	_, ok := s.CurrentToken()
	require.False(t, ok)

	require.NoError(t, s.Set(userToken("opaque")))
	tok, ok := s.CurrentToken()
	require.True(t, ok)
	require.Equal(t, "opaque", tok)

	require.NoError(t, s.Clear())
	_, ok = s.CurrentToken()
	require.False(t, ok)
}

func TestStore_ExpiredTokenIsAbsent(t *testing.T) {
	s := NewStore(nil, nil)
	require.NoError(t, s.Set(userToken(signed(t, time.Now().Add(time.Minute)))))
	_, ok := s.Current()
	require.True(t, ok)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok = s.Current()
	require.False(t, ok)
}

func TestStore_PersistAndRestore(t *testing.T) {
	dir := t.TempDir()
	want := userToken(signed(t, time.Now().Add(time.Hour)))

	s := NewStore(NewFileStore(dir), zaptest.NewLogger(t))
	require.NoError(t, s.Set(want))

	info, err := os.Stat(filepath.Join(dir, keyFile))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(filepath.Join(dir, sessionFile))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "alice")

	restored := NewStore(NewFileStore(dir), zaptest.NewLogger(t))
	got, ok := restored.Restore()
	require.True(t, ok)
	require.Equal(t, want.Token, got.Token)
	require.Equal(t, want.User.ID, got.User.ID)
	require.Equal(t, want.User.Roles, got.User.Roles)

	require.NoError(t, restored.Clear())
	_, err = os.Stat(filepath.Join(dir, sessionFile))
	require.True(t, os.IsNotExist(err))
	require.NoError(t, restored.Clear())
}

func TestStore_RestoreDropsCorrupted(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	require.NoError(t, fs.Save(userToken("x")))

	path := filepath.Join(dir, sessionFile)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = fs.Load()
	require.ErrorIs(t, err, ErrCorrupted)

	s := NewStore(fs, zaptest.NewLogger(t))
	_, ok := s.Restore()
	require.False(t, ok)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestStore_RestoreNothingStored(t *testing.T) {
	s := NewStore(NewFileStore(t.TempDir()), nil)
	_, ok := s.Restore()
	require.False(t, ok)
}

func TestDefaultDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.Equal(t, filepath.Join(dir, "bookshelf"), DefaultDir())
}
