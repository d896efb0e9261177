package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finanzas/internal/core"
	"finanzas/internal/store/memory"
)

func newProvider(st *memory.Store) *Provider {
	return NewProvider(st, WithHashCost(bcrypt.MinCost))
}

func TestSignUpCreatesAccountAndProfile(t *testing.T) {
	st := memory.New()
	p := newProvider(st)
	ctx := context.Background()

	var states []AuthState
	p.OnAuthStateChange(func(s AuthState) { states = append(states, s) })

	uid, err := p.SignUp(ctx, " Ana ", "Ana@Example.com", "secreto1")
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	prof, err := st.GetProfile(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ana", prof.Name)
	assert.Equal(t, "ana@example.com", prof.Email)
	assert.False(t, prof.CreatedAt.IsZero())
	assert.Equal(t, []AuthState{{UserID: uid, SignedIn: true}}, states)

	_, err = p.SignUp(ctx, "Otra", "ana@example.com", "secreto2")
	assert.True(t, HasCode(err, EmailInUse))
	assert.Equal(t, "Ya existe una cuenta con este correo", Message(err))
}

func TestSignUpValidation(t *testing.T) {
	p := newProvider(memory.New())
	ctx := context.Background()
	cases := []struct {
		name, email, password string
		code                  Code
	}{
		{"", "a@b.mx", "secreto", MissingFields},
		{"Ana", "", "secreto", MissingFields},
		{"Ana", "a@b.mx", "", MissingFields},
		{"Ana", "a@b.mx", "12345", WeakPassword},
		{"Ana", "not-an-email", "secreto", InvalidEmail},
		{"Ana", "a@localhost", "secreto", InvalidEmail},
		{"Ana", "Ana <a@b.mx>", "secreto", InvalidEmail},
	}
	for _, tc := range cases {
		_, err := p.SignUp(ctx, tc.name, tc.email, tc.password)
		assert.True(t, HasCode(err, tc.code), "%+v: got %v", tc, err)
	}
}

func TestSignIn(t *testing.T) {
	st := memory.New()
	p := newProvider(st)
	ctx := context.Background()
	uid, err := p.SignUp(ctx, "Ana", "ana@example.com", "secreto1")
	require.NoError(t, err)

	got, err := p.SignIn(ctx, "ANA@example.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = p.SignIn(ctx, "ana@example.com", "wrong-pass")
	assert.True(t, HasCode(err, InvalidCredentials))

	_, err = p.SignIn(ctx, "nadie@example.com", "secreto1")
	assert.True(t, HasCode(err, InvalidCredentials))
	assert.Equal(t, "Correo o contraseña incorrectos", Message(err))

	st.DisableAccount("ana@example.com")
	_, err = p.SignIn(ctx, "ana@example.com", "secreto1")
	assert.True(t, HasCode(err, UserDisabled))
	assert.Equal(t, "Esta cuenta ha sido deshabilitada", Message(err))
}

func TestSignOutAndUnsubscribe(t *testing.T) {
	p := newProvider(memory.New())
	var states []AuthState
	unsubscribe := p.OnAuthStateChange(func(s AuthState) { states = append(states, s) })

	p.SignOut(context.Background(), "u1")
	p.SignOut(context.Background(), "")
	unsubscribe()
	unsubscribe()
	p.SignOut(context.Background(), "u2")

	assert.Equal(t, []AuthState{{UserID: "u1", SignedIn: false}}, states)
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "Error desconocido", Message(errors.New("x")))
	assert.Equal(t, "Error desconocido", (&AuthError{Code: "other"}).Message())
	assert.ErrorIs(t, core.StoreError("x", errors.New("y")), core.ErrStoreUnavailable)
}

func TestTokens(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens([]byte("test-secret"), time.Hour).WithClock(func() time.Time { return now })

	tok, exp, err := tokens.Issue("u1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	uid, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	other := NewTokens([]byte("other-secret"), time.Hour).WithClock(func() time.Time { return now })
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	now = now.Add(2 * time.Hour)
	_, err = tokens.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRevocation(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens([]byte("test-secret"), time.Hour).WithClock(func() time.Time { return now })

	first, _, err := tokens.Issue("u1")
	require.NoError(t, err)
	second, _, err := tokens.Issue("u1")
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(first))
	assert.Equal(t, 1, tokens.Revoked())
	_, err = tokens.Verify(first)
	assert.ErrorIs(t, err, ErrInvalidToken)

	uid, err := tokens.Verify(second)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	assert.ErrorIs(t, tokens.Revoke("garbage"), ErrInvalidToken)

	now = now.Add(2 * time.Hour)
	assert.Zero(t, tokens.Revoked())
	fresh, _, err := tokens.Issue("u1")
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(fresh))
	assert.Equal(t, 1, tokens.Revoked())
}
