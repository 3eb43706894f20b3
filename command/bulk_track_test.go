package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-activity/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func (f *fakeUserRepo) GetUser(_ context.Context, id uuid.UUID, _ types.UserLookup) (*types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *types.User) (*types.User, error) {
	return user, nil
}

func (f *fakeUserRepo) CountUsers(context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeUserRepo) DiscardUser(context.Context, uuid.UUID) error { return nil }

func (f *fakeUserRepo) DeleteUser(context.Context, uuid.UUID) error { return nil }

func newBulkFixture() (*BulkTrackCommand, *fakeActivityRepo, *types.User) {
	track, activities, _, user := newTrackFixture()
	bulk := NewBulkTrackCommand(BulkTrackCommandConfig{
		Users: &fakeUserRepo{users: map[uuid.UUID]*types.User{user.ID: user}},
		Track: track,
	})
	return bulk, activities, user
}

func TestBulkTrackCommand_MixedBatch(t *testing.T) {
	bulk, activities, user := newBulkFixture()

	report := &types.BulkTrackReport{}
	err := bulk.Execute(context.Background(), BulkTrackInput{
		Entries: []types.BulkTrackEntry{
			{UserID: user.ID, ActivityType: "login"},
			{UserID: user.ID, ActivityType: "page_view"},
			{UserID: uuid.New(), ActivityType: "login"},
		},
		Result: report,
	})
	require.NoError(t, err)

	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 2, report.Failed)
	require.Equal(t, report.Total, report.Succeeded+report.Failed)

	// per-entry envelopes come back in input order
	require.Len(t, report.Results, 3)
	require.True(t, report.Results[0].Success)
	require.Equal(t, types.ReasonTracked, report.Results[0].Reason)
	require.Equal(t, types.ReasonInvalidType, report.Results[1].Reason)
	require.Equal(t, types.ReasonUserNotFound, report.Results[2].Reason)

	require.Len(t, activities.created, 1)
}

func TestBulkTrackCommand_UnknownUserDoesNotAbort(t *testing.T) {
	bulk, activities, user := newBulkFixture()

	report := &types.BulkTrackReport{}
	err := bulk.Execute(context.Background(), BulkTrackInput{
		Entries: []types.BulkTrackEntry{
			{UserID: uuid.New(), ActivityType: "login"},
			{UserID: uuid.Nil, ActivityType: "login"},
			{UserID: user.ID, ActivityType: "logout"},
		},
		Result: report,
	})
	require.NoError(t, err)

	require.Equal(t, 2, report.Failed)
	require.Equal(t, 1, report.Succeeded)
	// an id that resolves to nobody reports "user not found"; a missing id
	// stays "user_required"
	require.Equal(t, types.ReasonUserNotFound, report.Results[0].Reason)
	require.Equal(t, types.ReasonUserRequired, report.Results[1].Reason)
	require.Len(t, activities.created, 1)
	require.Equal(t, types.ActivityLogout, activities.created[0].ActivityType)
}

func TestBulkTrackInput_Validate(t *testing.T) {
	require.ErrorIs(t, BulkTrackInput{}.Validate(), ErrEntriesRequired)
	require.NoError(t, BulkTrackInput{
		Entries: []types.BulkTrackEntry{{UserID: uuid.New(), ActivityType: "login"}},
	}.Validate())
}

func TestBulkTrackCommand_MissingDependencies(t *testing.T) {
	bulk := NewBulkTrackCommand(BulkTrackCommandConfig{})
	err := bulk.Execute(context.Background(), BulkTrackInput{})
	require.ErrorIs(t, err, types.ErrMissingUserRepository)

	bulk = NewBulkTrackCommand(BulkTrackCommandConfig{Users: &fakeUserRepo{}})
	err = bulk.Execute(context.Background(), BulkTrackInput{})
	require.ErrorIs(t, err, ErrMissingTrackCommand)
}
