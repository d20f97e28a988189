package service

import (
	"context"
	"testing"

	"Ripple/internal/event"
	"Ripple/internal/model"
	"Ripple/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type conversationFixture struct {
	svc           ConversationService
	convs         *fakeConversationRepo
	messages      *fakeMessageRepo
	users         *fakeUserRepo
	friends       *fakeFriendRepo
	notifications *fakeNotificationRepo
	deliverer     *recordingDeliverer
}

func newConversationFixture() *conversationFixture {
	convs := newFakeConversationRepo()
	messages := newFakeMessageRepo()
	users := newFakeUserRepo()
	friends := &fakeFriendRepo{}
	notifications := newFakeNotificationRepo()
	deliverer := &recordingDeliverer{}
	return &conversationFixture{
		svc:           NewConversationService(convs, messages, users, friends, notifications, deliverer, zap.NewNop()),
		convs:         convs,
		messages:      messages,
		users:         users,
		friends:       friends,
		notifications: notifications,
		deliverer:     deliverer,
	}
}

func (f *conversationFixture) user(name string) *model.User {
	return f.users.add(model.User{
		UserName:    name,
		Email:       name + "@example.com",
		DisplayName: name,
	})
}

func (f *conversationFixture) befriend(a, b primitive.ObjectID) {
	_, err := f.friends.Create(context.Background(), a, b)
	if err != nil {
		panic(err)
	}
}

func TestGetOrCreateDirect(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")

	_, err := f.svc.GetOrCreateDirect(context.Background(), alice.ID, bob.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden, "strangers cannot open a conversation")

	f.befriend(alice.ID, bob.ID)

	view, err := f.svc.GetOrCreateDirect(context.Background(), alice.ID, bob.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, model.ConversationDirect, view.Type)
	assert.Len(t, view.Members, 2)

	pushes := f.deliverer.tagged(event.EventNewConversation)
	require.Len(t, pushes, 1)
	assert.ElementsMatch(t, []string{alice.ID.Hex(), bob.ID.Hex()}, pushes[0].recipients)

	// a second call from either side reuses the same conversation
	again, err := f.svc.GetOrCreateDirect(context.Background(), bob.ID, alice.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, view.Conversation.ID, again.Conversation.ID)
	assert.Len(t, f.deliverer.tagged(event.EventNewConversation), 1)
}

func TestGetOrCreateDirectWithSelf(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")

	_, err := f.svc.GetOrCreateDirect(context.Background(), alice.ID, alice.ID.Hex())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateGroup(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	f.befriend(alice.ID, bob.ID)
	f.befriend(alice.ID, carol.ID)

	view, err := f.svc.CreateGroup(context.Background(), alice.ID, CreateGroupInput{
		Name:      "  weekend plans  ",
		MemberIDs: []string{bob.ID.Hex(), carol.ID.Hex(), bob.ID.Hex()},
	})
	require.NoError(t, err)
	require.NotNil(t, view.Group)
	assert.Equal(t, "weekend plans", view.Group.Name)
	assert.Equal(t, alice.ID, view.Group.CreatedBy)
	assert.Len(t, view.Conversation.Participants, 3, "duplicate invites collapse")

	pushes := f.deliverer.tagged(event.EventNewConversation)
	require.Len(t, pushes, 1)
	assert.ElementsMatch(t, []string{alice.ID.Hex(), bob.ID.Hex(), carol.ID.Hex()}, pushes[0].recipients)

	invites := f.deliverer.tagged(event.EventNotification)
	assert.Len(t, invites, 2, "each invitee gets a notification")
}

func TestCreateGroupRequiresFriends(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	stranger := f.user("mallory")
	f.befriend(alice.ID, bob.ID)

	_, err := f.svc.CreateGroup(context.Background(), alice.ID, CreateGroupInput{
		Name:      "plotters",
		MemberIDs: []string{bob.ID.Hex(), stranger.ID.Hex()},
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.CreateGroup(context.Background(), alice.ID, CreateGroupInput{
		Name:      "just us",
		MemberIDs: []string{bob.ID.Hex(), alice.ID.Hex()},
	})
	assert.ErrorIs(t, err, ErrInvalidInput, "creator plus one is not a group")
}

func TestRenameGroup(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationGroup,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
		Group:        &model.GroupInfo{Name: "old", CreatedBy: alice.ID},
	})

	require.NoError(t, f.svc.RenameGroup(context.Background(), bob.ID, conv.ID, "new name"))
	fresh, err := f.convs.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", fresh.Group.Name)

	err = f.svc.RenameGroup(context.Background(), alice.ID, conv.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	direct := f.convs.add(model.Conversation{
		Type:         model.ConversationDirect,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
	})
	err = f.svc.RenameGroup(context.Background(), alice.ID, direct.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddMembersBroadcastsFreshRoster(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationGroup,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
		Group:        &model.GroupInfo{Name: "trio", CreatedBy: alice.ID},
	})

	require.NoError(t, f.svc.AddMembers(context.Background(), alice.ID, conv.ID, []string{carol.ID.Hex(), bob.ID.Hex()}))

	pushes := f.deliverer.tagged(event.EventNewConversation)
	require.Len(t, pushes, 1)
	assert.ElementsMatch(t, []string{alice.ID.Hex(), bob.ID.Hex(), carol.ID.Hex()}, pushes[0].recipients,
		"carol is in the broadcast roster")

	invites := f.deliverer.tagged(event.EventNotification)
	require.Len(t, invites, 1, "already-present members are not re-invited")
	assert.Equal(t, []string{carol.ID.Hex()}, invites[0].recipients)
}

func TestRemoveMemberCreatorOnly(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationGroup,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}, {UserID: carol.ID}},
		Group:        &model.GroupInfo{Name: "trio", CreatedBy: alice.ID},
	})

	err := f.svc.RemoveMember(context.Background(), bob.ID, conv.ID, carol.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.RemoveMember(context.Background(), alice.ID, conv.ID, carol.ID.Hex()))
	fresh, err := f.convs.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.False(t, fresh.HasParticipant(carol.ID))

	err = f.svc.RemoveMember(context.Background(), alice.ID, conv.ID, carol.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDirectDissolves(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationDirect,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
	})
	f.messages.add(model.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "hi"})
	f.messages.add(model.Message{ConversationID: conv.ID, SenderID: bob.ID, Content: "hello"})

	require.NoError(t, f.svc.DeleteOrLeave(context.Background(), alice.ID, conv.ID))

	_, err := f.convs.FindByID(context.Background(), conv.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	page, err := f.messages.ListByConversation(context.Background(), conv.ID, repo.MessageQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Data, "messages go with the conversation")
}

func TestLeaveGroup(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationGroup,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}, {UserID: carol.ID}},
		Group:        &model.GroupInfo{Name: "trio", CreatedBy: alice.ID},
	})

	require.NoError(t, f.svc.DeleteOrLeave(context.Background(), carol.ID, conv.ID))
	fresh, err := f.convs.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.False(t, fresh.HasParticipant(carol.ID))
	assert.Len(t, fresh.Participants, 2)

	require.NoError(t, f.svc.DeleteOrLeave(context.Background(), bob.ID, conv.ID))
	require.NoError(t, f.svc.DeleteOrLeave(context.Background(), alice.ID, conv.ID))
	_, err = f.convs.FindByID(context.Background(), conv.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound, "group dissolves when the last member leaves")
}

func TestMarkRead(t *testing.T) {
	f := newConversationFixture()
	alice := f.user("alice")
	bob := f.user("bob")
	conv := f.convs.add(model.Conversation{
		Type:         model.ConversationDirect,
		Participants: []model.Participant{{UserID: alice.ID}, {UserID: bob.ID}},
		UnreadCounts: map[string]int64{alice.ID.Hex(): 4},
	})

	require.NoError(t, f.svc.MarkRead(context.Background(), alice.ID, conv.ID))
	fresh, err := f.convs.FindByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fresh.UnreadFor(alice.ID))
	assert.Contains(t, fresh.SeenBy, alice.ID)

	outsider := f.user("mallory")
	err = f.svc.MarkRead(context.Background(), outsider.ID, conv.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
