package workflow

import (
	"context"
	"errors"
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

const rosterBody = `[
	{"_id":"c1","code":"SUMMER25","isActive":true,"claimedBy":["v1","v2"]},
	{"_id":"c2","code":"AUTUMN10","isActive":false,"claimedBy":[]}
]`

func testRosterConfig() RosterConfig {
	return RosterConfig{NoticeWindow: 300 * time.Millisecond}
}

func newTestRoster(sender transport.Sender) *Roster {
	return NewRoster(sender, testRosterConfig(), zerolog.Nop())
}

func TestRoster_RefreshReplacesSnapshot(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	assert.False(t, roster.Snapshot().Loaded)

	require.True(t, roster.Refresh(context.Background()))

	require.Eventually(t, func() bool {
		return roster.Snapshot().Loaded
	}, time.Second, 5*time.Millisecond)

	snap := roster.Snapshot()
	require.Len(t, snap.Coupons, 2)
	assert.Equal(t, "SUMMER25", snap.Coupons[0].Code)
	assert.True(t, snap.Coupons[0].IsActive)
	assert.Len(t, snap.Coupons[0].ClaimedBy, 2)
	assert.False(t, snap.Coupons[1].IsActive)
	assert.Nil(t, snap.LoadErr)
}

func TestRoster_EmptyRosterIsValidSuccess(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(`[]`)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.Refresh(context.Background())

	require.Eventually(t, func() bool {
		return roster.Snapshot().Loaded
	}, time.Second, 5*time.Millisecond)

	snap := roster.Snapshot()
	assert.Empty(t, snap.Coupons)
	assert.Nil(t, snap.LoadErr)
}

func TestRoster_RefreshFailureLeavesSnapshotUntouched(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil).Once()
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(nil, errors.New("connection reset")).Once()

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.Refresh(context.Background())
	require.Eventually(t, func() bool {
		return roster.Snapshot().Loaded
	}, time.Second, 5*time.Millisecond)

	roster.Refresh(context.Background())
	require.Eventually(t, func() bool {
		return roster.Snapshot().LoadErr != nil
	}, time.Second, 5*time.Millisecond)

	snap := roster.Snapshot()
	assert.Len(t, snap.Coupons, 2, "stale snapshot survives a failed refresh")
	assert.True(t, snap.Loaded)
	assert.Equal(t, model.TagUnknown, snap.LoadErr.Tag)
}

func TestRoster_DoubleRefreshIssuesOneRequest(t *testing.T) {
	release := make(chan struct{})
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Run(func(mock.Arguments) { <-release }).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	require.True(t, roster.Refresh(context.Background()))
	assert.False(t, roster.Refresh(context.Background()))

	close(release)

	require.Eventually(t, func() bool {
		return roster.Snapshot().Loaded
	}, time.Second, 5*time.Millisecond)

	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestRoster_AddRejectsBlankCodesLocally(t *testing.T) {
	sender := new(MockSender)
	roster := newTestRoster(sender)
	defer roster.Close()

	assert.False(t, roster.Add(context.Background(), ""))
	assert.False(t, roster.Add(context.Background(), "   "))

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, roster.Snapshot().Coupons)
}

func TestRoster_AddSuccess(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/coupons", model.CreateCouponRequest{Code: "WINTER50"}).
		Return(&transport.Response{Status: http.StatusCreated, Body: []byte(`{"_id":"c3","code":"WINTER50","isActive":true,"claimedBy":[]}`)}, nil)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.OpenDialog()
	roster.SetDraft("WINTER50")

	require.True(t, roster.Add(context.Background(), "WINTER50"))

	require.Eventually(t, func() bool {
		return roster.Snapshot().Success != nil
	}, time.Second, 5*time.Millisecond)

	snap := roster.Snapshot()
	assert.Contains(t, snap.Success.Message, `Coupon "WINTER50" was added successfully!`)
	assert.False(t, snap.DialogOpen, "dialog closes on success")
	assert.Empty(t, snap.Draft, "draft clears on success")

	// Success triggers a roster refresh.
	require.Eventually(t, func() bool {
		return roster.Snapshot().Loaded
	}, time.Second, 5*time.Millisecond)
	sender.AssertCalled(t, "Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil)
}

func TestRoster_AddFailureKeepsDraft(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPost, "/api/admin/coupons", model.CreateCouponRequest{Code: "SUMMER25"}).
		Return(&transport.Response{Status: http.StatusBadRequest, Body: []byte(`{"message":"Coupon code already exists"}`)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.OpenDialog()
	roster.SetDraft("SUMMER25")

	roster.Add(context.Background(), "SUMMER25")

	require.Eventually(t, func() bool {
		return roster.Snapshot().Error != nil
	}, time.Second, 5*time.Millisecond)

	snap := roster.Snapshot()
	assert.Equal(t, "Failed to add coupon", snap.Error.Title)
	assert.Equal(t, "Coupon code already exists", snap.Error.Message)
	assert.Equal(t, "SUMMER25", snap.Draft, "input untouched so the admin can correct it")
	assert.True(t, snap.DialogOpen)
	assert.Nil(t, snap.Success)

	// No refresh on failure.
	sender.AssertNotCalled(t, "Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil)
}

func TestRoster_ToggleSuccessWording(t *testing.T) {
	tests := []struct {
		name     string
		current  bool
		expected string
	}{
		{name: "Disabling an active coupon", current: true, expected: "disabled"},
		{name: "Enabling an inactive coupon", current: false, expected: "enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(MockSender)
			sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c1/toggle", nil).
				Return(&transport.Response{Status: http.StatusOK}, nil)
			sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
				Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

			roster := newTestRoster(sender)
			defer roster.Close()

			require.True(t, roster.Toggle(context.Background(), "c1", "SUMMER25", tt.current))

			require.Eventually(t, func() bool {
				return roster.Snapshot().Success != nil
			}, time.Second, 5*time.Millisecond)

			assert.Contains(t, roster.Snapshot().Success.Message, tt.expected)
			assert.Contains(t, roster.Snapshot().Success.Message, "SUMMER25")
		})
	}
}

func TestRoster_ToggleFailureNamesAttemptedAction(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c1/toggle", nil).
		Return(&transport.Response{Status: http.StatusInternalServerError}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.Toggle(context.Background(), "c1", "SUMMER25", true)

	require.Eventually(t, func() bool {
		return roster.Snapshot().Error != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Failed to disable coupon", roster.Snapshot().Error.Title)
	sender.AssertNotCalled(t, "Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil)
}

func TestRoster_NoticeAutoDismisses(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c1/toggle", nil).
		Return(&transport.Response{Status: http.StatusOK}, nil)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.Toggle(context.Background(), "c1", "SUMMER25", true)

	require.Eventually(t, func() bool {
		return roster.Snapshot().Success != nil
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return roster.Snapshot().Success == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRoster_NewNoticeSupersedesPrior(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c1/toggle", nil).
		Return(&transport.Response{Status: http.StatusOK}, nil)
	sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c2/toggle", nil).
		Return(&transport.Response{Status: http.StatusOK}, nil)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := NewRoster(sender, RosterConfig{NoticeWindow: time.Hour}, zerolog.Nop())
	defer roster.Close()

	roster.Toggle(context.Background(), "c1", "SUMMER25", true)
	require.Eventually(t, func() bool {
		snap := roster.Snapshot()
		return snap.Success != nil && !snap.Toggling
	}, time.Second, 5*time.Millisecond)

	roster.Toggle(context.Background(), "c2", "AUTUMN10", false)
	require.Eventually(t, func() bool {
		snap := roster.Snapshot()
		return snap.Success != nil && snap.Success.Message != "" &&
			snap.Success.Message == `Coupon "AUTUMN10" was enabled successfully!`
	}, time.Second, 5*time.Millisecond)
}

func TestRoster_DismissNotices(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodPatch, "/api/admin/coupons/c1/toggle", nil).
		Return(&transport.Response{Status: http.StatusOK}, nil)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(rosterBody)}, nil)

	roster := NewRoster(sender, RosterConfig{NoticeWindow: time.Hour}, zerolog.Nop())
	defer roster.Close()

	roster.Toggle(context.Background(), "c1", "SUMMER25", true)
	require.Eventually(t, func() bool {
		return roster.Snapshot().Success != nil
	}, time.Second, 5*time.Millisecond)

	roster.DismissSuccess()
	assert.Nil(t, roster.Snapshot().Success)
}

func TestRoster_MalformedListBody(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, http.MethodGet, "/api/admin/coupons", nil).
		Return(&transport.Response{Status: http.StatusOK, Body: []byte(`{"oops":`)}, nil)

	roster := newTestRoster(sender)
	defer roster.Close()

	roster.Refresh(context.Background())

	require.Eventually(t, func() bool {
		return roster.Snapshot().LoadErr != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, model.TagServerError, roster.Snapshot().LoadErr.Tag)
	assert.False(t, roster.Snapshot().Loaded)
}
