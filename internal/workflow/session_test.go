package workflow

import (
	"context"
	"net/http"
	"testing"
	"time"

	"coupon-desk/internal/model"
	"coupon-desk/internal/transport"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSession_LoginSuccess(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login",
		model.LoginRequest{Username: "admin", Password: "secret"}).
		Return(&transport.Response{Status: http.StatusOK}, nil)

	session := NewSession(sender, zerolog.Nop())

	require.True(t, session.Login(context.Background(), "admin", "secret"))

	require.Eventually(t, func() bool {
		return session.Snapshot().Authenticated
	}, time.Second, 5*time.Millisecond)

	snap := session.Snapshot()
	assert.Nil(t, snap.Err)
	assert.False(t, snap.Pending)
}

func TestSession_WrongPassword(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login",
		model.LoginRequest{Username: "admin", Password: "wrong"}).
		Return(&transport.Response{
			Status: http.StatusUnauthorized,
			Body:   []byte(`{"message":"Invalid username or password"}`),
		}, nil)

	session := NewSession(sender, zerolog.Nop())

	session.Login(context.Background(), "admin", "wrong")

	require.Eventually(t, func() bool {
		return session.Snapshot().Err != nil
	}, time.Second, 5*time.Millisecond)

	snap := session.Snapshot()
	assert.False(t, snap.Authenticated, "no navigation on a failed login")
	assert.Equal(t, model.TagUnauthorized, snap.Err.Tag)
	assert.Equal(t, "Invalid username or password", snap.Err.Message)

	// The inline error has no auto-dismiss: it stays put.
	time.Sleep(50 * time.Millisecond)
	assert.NotNil(t, session.Snapshot().Err)
}

func TestSession_EmptyCredentialsAreSubmitted(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login",
		model.LoginRequest{Username: "", Password: ""}).
		Return(&transport.Response{Status: http.StatusUnauthorized}, nil)

	session := NewSession(sender, zerolog.Nop())

	require.True(t, session.Login(context.Background(), "", ""))

	require.Eventually(t, func() bool {
		return session.Snapshot().Err != nil
	}, time.Second, 5*time.Millisecond)

	sender.AssertExpectations(t)
}

func TestSession_NextAttemptClearsError(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login",
		model.LoginRequest{Username: "admin", Password: "wrong"}).
		Return(&transport.Response{Status: http.StatusUnauthorized}, nil).Once()
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login",
		model.LoginRequest{Username: "admin", Password: "secret"}).
		Return(&transport.Response{Status: http.StatusOK}, nil).Once()

	session := NewSession(sender, zerolog.Nop())

	session.Login(context.Background(), "admin", "wrong")
	require.Eventually(t, func() bool {
		return session.Snapshot().Err != nil
	}, time.Second, 5*time.Millisecond)

	session.Login(context.Background(), "admin", "secret")
	require.Eventually(t, func() bool {
		return session.Snapshot().Authenticated
	}, time.Second, 5*time.Millisecond)

	assert.Nil(t, session.Snapshot().Err)
}

func TestSession_PendingGuard(t *testing.T) {
	release := make(chan struct{})
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&transport.Response{Status: http.StatusOK}, nil)

	session := NewSession(sender, zerolog.Nop())

	require.True(t, session.Login(context.Background(), "admin", "secret"))
	require.Eventually(t, session.IsPending, time.Second, 5*time.Millisecond)
	assert.False(t, session.Login(context.Background(), "admin", "secret"))

	close(release)

	require.Eventually(t, func() bool {
		return session.Snapshot().Authenticated
	}, time.Second, 5*time.Millisecond)

	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestSession_Reset(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/login", mock.Anything).
		Return(&transport.Response{Status: http.StatusUnauthorized}, nil)

	session := NewSession(sender, zerolog.Nop())

	session.Login(context.Background(), "admin", "wrong")
	require.Eventually(t, func() bool {
		return session.Snapshot().Err != nil
	}, time.Second, 5*time.Millisecond)

	session.Reset()
	assert.Nil(t, session.Snapshot().Err)
}
