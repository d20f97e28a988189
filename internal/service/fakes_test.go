package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"Ripple/internal/db"
	"Ripple/internal/event"
	"Ripple/internal/model"
	"Ripple/internal/repo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type delivery struct {
	recipients []string
	ev         event.WsEvent
}

type recordingDeliverer struct {
	deliveries []delivery
}

func (d *recordingDeliverer) Deliver(recipientIDs []string, ev event.WsEvent) {
	d.deliveries = append(d.deliveries, delivery{recipients: recipientIDs, ev: ev})
}

func (d *recordingDeliverer) tagged(tag string) []delivery {
	var out []delivery
	for _, dv := range d.deliveries {
		if dv.ev.Event == tag {
			out = append(out, dv)
		}
	}
	return out
}

// ---- users ----

type fakeUserRepo struct {
	users map[primitive.ObjectID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*model.User)}
}

func (f *fakeUserRepo) add(u model.User) *model.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.NormalizedDisplayName == "" {
		u.NormalizedDisplayName = model.NormalizeName(u.DisplayName)
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) (primitive.ObjectID, error) {
	user.ID = primitive.NewObjectID()
	user.UserName = strings.ToLower(user.UserName)
	user.Email = strings.ToLower(user.Email)
	user.NormalizedDisplayName = model.NormalizeName(user.DisplayName)
	clone := *user
	f.users[user.ID] = &clone
	return user.ID, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) FindByLogin(_ context.Context, login string) (*model.User, error) {
	login = strings.ToLower(login)
	for _, u := range f.users {
		if u.UserName == login || u.Email == login {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) ExistsByNameOrEmail(_ context.Context, userName, email string) (bool, error) {
	for _, u := range f.users {
		if u.UserName == strings.ToLower(userName) || u.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) Search(_ context.Context, query string, exclude primitive.ObjectID, _ int64) ([]model.User, error) {
	needle := model.NormalizeName(query)
	var out []model.User
	for _, u := range f.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(u.NormalizedDisplayName, needle) || strings.Contains(u.UserName, needle) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, patch bson.M) error {
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	if v, ok := patch["display_name"].(string); ok {
		u.DisplayName = v
		u.NormalizedDisplayName = model.NormalizeName(v)
	}
	if v, ok := patch["bio"].(string); ok {
		u.Bio = v
	}
	if v, ok := patch["avatar_url"].(string); ok {
		u.AvatarURL = v
	}
	if v, ok := patch["phone"].(string); ok {
		u.Phone = v
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.HashPassword = hash
	return nil
}

func (f *fakeUserRepo) SetPresence(_ context.Context, userID string, status string, lastSeen time.Time) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return repo.ErrInvalidID
	}
	if u, ok := f.users[id]; ok {
		u.Status = status
		u.LastSeen = lastSeen
	}
	return nil
}

func (f *fakeUserRepo) SetResetOTP(_ context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ResetOTP = otp
	u.ResetOTPExpires = &expires
	return nil
}

func (f *fakeUserRepo) FindByOTP(_ context.Context, email, otp string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) && u.ResetOTP == otp &&
			u.ResetOTPExpires != nil && u.ResetOTPExpires.After(time.Now()) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpires = &expires
	u.ResetOTP = ""
	u.ResetOTPExpires = nil
	return nil
}

func (f *fakeUserRepo) FindByResetToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range f.users {
		if u.ResetToken == token && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(time.Now()) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) ClearReset(_ context.Context, id primitive.ObjectID) error {
	if u, ok := f.users[id]; ok {
		u.ResetOTP = ""
		u.ResetOTPExpires = nil
		u.ResetToken = ""
		u.ResetTokenExpires = nil
	}
	return nil
}

// ---- friends ----

type fakeFriendRepo struct {
	pairs []model.Friend
}

func (f *fakeFriendRepo) Create(_ context.Context, a, b primitive.ObjectID) (*model.Friend, error) {
	first, second := model.CanonicalPair(a, b)
	friend := model.Friend{ID: primitive.NewObjectID(), UserA: first, UserB: second, CreatedAt: time.Now()}
	f.pairs = append(f.pairs, friend)
	return &friend, nil
}

func (f *fakeFriendRepo) FindPair(_ context.Context, a, b primitive.ObjectID) (*model.Friend, error) {
	first, second := model.CanonicalPair(a, b)
	for i := range f.pairs {
		if f.pairs[i].UserA == first && f.pairs[i].UserB == second {
			clone := f.pairs[i]
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeFriendRepo) ListForUser(_ context.Context, userID primitive.ObjectID) ([]model.Friend, error) {
	var out []model.Friend
	for i := range f.pairs {
		if f.pairs[i].Involves(userID) {
			out = append(out, f.pairs[i])
		}
	}
	return out, nil
}

func (f *fakeFriendRepo) DeletePair(_ context.Context, a, b primitive.ObjectID) error {
	first, second := model.CanonicalPair(a, b)
	for i := range f.pairs {
		if f.pairs[i].UserA == first && f.pairs[i].UserB == second {
			f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

// ---- friend requests ----

type fakeRequestRepo struct {
	requests map[primitive.ObjectID]*model.FriendRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[primitive.ObjectID]*model.FriendRequest)}
}

func (f *fakeRequestRepo) Create(_ context.Context, req *model.FriendRequest) (primitive.ObjectID, error) {
	req.ID = primitive.NewObjectID()
	req.CreatedAt = time.Now()
	clone := *req
	f.requests[req.ID] = &clone
	return req.ID, nil
}

func (f *fakeRequestRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.FriendRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) FindBetween(_ context.Context, a, b primitive.ObjectID) (*model.FriendRequest, error) {
	for _, req := range f.requests {
		if (req.From == a && req.To == b) || (req.From == b && req.To == a) {
			clone := *req
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRequestRepo) ListSent(_ context.Context, from primitive.ObjectID, _ db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error) {
	var out []model.FriendRequest
	for _, req := range f.requests {
		if req.From == from {
			out = append(out, *req)
		}
	}
	return &db.PaginatedResult[model.FriendRequest]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeRequestRepo) ListReceived(_ context.Context, to primitive.ObjectID, _ db.PaginationParams) (*db.PaginatedResult[model.FriendRequest], error) {
	var out []model.FriendRequest
	for _, req := range f.requests {
		if req.To == to {
			out = append(out, *req)
		}
	}
	return &db.PaginatedResult[model.FriendRequest]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeRequestRepo) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.requests[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.requests, id)
	return nil
}

// ---- conversations ----

type fakeConversationRepo struct {
	conversations map[primitive.ObjectID]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[primitive.ObjectID]*model.Conversation)}
}

func (f *fakeConversationRepo) add(conv model.Conversation) *model.Conversation {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int64{}
	}
	f.conversations[conv.ID] = &conv
	return &conv
}

func (f *fakeConversationRepo) Create(_ context.Context, conv *model.Conversation) (primitive.ObjectID, error) {
	conv.ID = primitive.NewObjectID()
	now := time.Now()
	conv.CreatedAt = now
	conv.LastMessageAt = now
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int64{}
	}
	clone := *conv
	f.conversations[conv.ID] = &clone
	return conv.ID, nil
}

func (f *fakeConversationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *conv
	clone.Participants = append([]model.Participant(nil), conv.Participants...)
	return &clone, nil
}

func (f *fakeConversationRepo) FindDirectBetween(_ context.Context, a, b primitive.ObjectID) (*model.Conversation, error) {
	for _, conv := range f.conversations {
		if conv.Type == model.ConversationDirect && conv.HasParticipant(a) && conv.HasParticipant(b) {
			clone := *conv
			return &clone, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeConversationRepo) ListForUser(_ context.Context, userID primitive.ObjectID, query repo.ConversationQuery) (*db.PaginatedResult[model.Conversation], error) {
	var out []model.Conversation
	for _, conv := range f.conversations {
		if !conv.HasParticipant(userID) {
			continue
		}
		if query.Type != "" && conv.Type != query.Type {
			continue
		}
		out = append(out, *conv)
	}
	return &db.PaginatedResult[model.Conversation]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeConversationRepo) IDsForUser(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv.ID)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) SetLastMessage(_ context.Context, id primitive.ObjectID, last *model.LastMessage, sender primitive.ObjectID, recipients []primitive.ObjectID) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	conv.LastMessage = last
	conv.LastMessageAt = last.CreatedAt
	conv.SeenBy = []primitive.ObjectID{sender}
	for _, rid := range recipients {
		if rid != sender {
			conv.UnreadCounts[rid.Hex()]++
		}
	}
	conv.UnreadCounts[sender.Hex()] = 0
	return nil
}

func (f *fakeConversationRepo) PatchLastMessage(_ context.Context, id, messageID primitive.ObjectID, content string) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	if conv.LastMessage != nil && conv.LastMessage.MessageID == messageID {
		conv.LastMessage.Content = content
	}
	return nil
}

func (f *fakeConversationRepo) ReplaceLastMessage(_ context.Context, id primitive.ObjectID, last *model.LastMessage) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	conv.LastMessage = last
	if last != nil {
		conv.LastMessageAt = last.CreatedAt
	}
	return nil
}

func (f *fakeConversationRepo) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	conv.SeenBy = append(conv.SeenBy, userID)
	conv.UnreadCounts[userID.Hex()] = 0
	return nil
}

func (f *fakeConversationRepo) UpdateGroupInfo(_ context.Context, id primitive.ObjectID, patch bson.M) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	if conv.Group == nil {
		conv.Group = &model.GroupInfo{}
	}
	if v, ok := patch["group.name"].(string); ok {
		conv.Group.Name = v
		conv.Group.NormalizedName = model.NormalizeName(v)
	}
	return nil
}

func (f *fakeConversationRepo) AddParticipants(_ context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	for _, uid := range userIDs {
		conv.Participants = append(conv.Participants, model.Participant{UserID: uid, JoinedAt: now})
	}
	return nil
}

func (f *fakeConversationRepo) RemoveParticipant(_ context.Context, id, userID primitive.ObjectID) error {
	conv, ok := f.conversations[id]
	if !ok {
		return repo.ErrNotFound
	}
	conv.Participants = Filter(conv.Participants, func(p model.Participant) bool {
		return p.UserID != userID
	})
	delete(conv.UnreadCounts, userID.Hex())
	return nil
}

func (f *fakeConversationRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.conversations[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.conversations, id)
	return nil
}

// ---- messages ----

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID]*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[primitive.ObjectID]*model.Message)}
}

func (f *fakeMessageRepo) add(msg model.Message) *model.Message {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	f.messages[msg.ID] = &msg
	return &msg
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *model.Message) (primitive.ObjectID, error) {
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now()
	clone := *msg
	f.messages[msg.ID] = &clone
	return msg.ID, nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, convID primitive.ObjectID, _ repo.MessageQuery) (*db.PaginatedResult[model.Message], error) {
	var out []model.Message
	for _, msg := range f.messages {
		if msg.ConversationID == convID {
			out = append(out, *msg)
		}
	}
	return &db.PaginatedResult[model.Message]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeMessageRepo) SetContent(_ context.Context, id primitive.ObjectID, content string) (*model.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	now := time.Now()
	msg.Content = content
	msg.EditedAt = &now
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageRepo) MarkRecalled(_ context.Context, id primitive.ObjectID) (*model.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	msg.IsRecalled = true
	msg.Content = ""
	msg.ImageURL = ""
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageRepo) LatestActive(_ context.Context, convID primitive.ObjectID) (*model.Message, error) {
	var latest *model.Message
	for _, msg := range f.messages {
		if msg.ConversationID != convID || msg.IsRecalled {
			continue
		}
		if latest == nil || msg.CreatedAt.After(latest.CreatedAt) {
			latest = msg
		}
	}
	if latest == nil {
		return nil, repo.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// ToggleReaction mirrors the two-step store algorithm: an atomic pull of
// the user's reaction, then a push guarded on no reaction by the user
// still being present. The lock is released between the steps so
// concurrent callers interleave the same way they would against Mongo.
func (f *fakeMessageRepo) ToggleReaction(ctx context.Context, id, userID primitive.ObjectID, emoji string) (*model.Message, error) {
	before, err := f.pullReaction(id, userID)
	if err != nil {
		return nil, err
	}
	for _, re := range before {
		if re.UserID == userID && re.Emoji == emoji {
			return f.FindByID(ctx, id)
		}
	}
	pushed, err := f.pushReactionIfAbsent(id, userID, emoji)
	if err != nil {
		return nil, err
	}
	if pushed == nil {
		// another toggle re-added a reaction first
		return f.FindByID(ctx, id)
	}
	return pushed, nil
}

func (f *fakeMessageRepo) pullReaction(id, userID primitive.ObjectID) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	before := append([]model.Reaction(nil), msg.Reactions...)
	kept := msg.Reactions[:0]
	for _, re := range msg.Reactions {
		if re.UserID != userID {
			kept = append(kept, re)
		}
	}
	msg.Reactions = kept
	return before, nil
}

func (f *fakeMessageRepo) pushReactionIfAbsent(id, userID primitive.ObjectID, emoji string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	for _, re := range msg.Reactions {
		if re.UserID == userID {
			return nil, nil
		}
	}
	msg.Reactions = append(msg.Reactions, model.Reaction{UserID: userID, Emoji: emoji, CreatedAt: time.Now()})
	clone := *msg
	return &clone, nil
}

func (f *fakeMessageRepo) SearchInConversations(_ context.Context, convIDs []primitive.ObjectID, text string, _ db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	in := make(map[primitive.ObjectID]bool, len(convIDs))
	for _, id := range convIDs {
		in[id] = true
	}
	var out []model.Message
	for _, msg := range f.messages {
		if in[msg.ConversationID] && !msg.IsRecalled &&
			strings.Contains(strings.ToLower(msg.Content), strings.ToLower(text)) {
			out = append(out, *msg)
		}
	}
	return &db.PaginatedResult[model.Message]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeMessageRepo) DeleteByConversation(_ context.Context, convID primitive.ObjectID) error {
	for id, msg := range f.messages {
		if msg.ConversationID == convID {
			delete(f.messages, id)
		}
	}
	return nil
}

// ---- notifications ----

type fakeNotificationRepo struct {
	notifications map[primitive.ObjectID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[primitive.ObjectID]*model.Notification)}
}

func (f *fakeNotificationRepo) Insert(_ context.Context, n *model.Notification) (primitive.ObjectID, error) {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	clone := *n
	f.notifications[n.ID] = &clone
	return n.ID, nil
}

func (f *fakeNotificationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*model.Notification, error) {
	n, ok := f.notifications[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (f *fakeNotificationRepo) ListForUser(_ context.Context, userID primitive.ObjectID, unreadOnly bool, _ db.PaginationParams) (*db.PaginatedResult[model.Notification], error) {
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return &db.PaginatedResult[model.Notification]{Data: out, Total: int64(len(out))}, nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) SetRead(_ context.Context, id, userID primitive.ObjectID, read bool) error {
	n, ok := f.notifications[id]
	if !ok || n.UserID != userID {
		return repo.ErrNotFound
	}
	n.IsRead = read
	return nil
}

func (f *fakeNotificationRepo) SetAllRead(_ context.Context, userID primitive.ObjectID) error {
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	n, ok := f.notifications[id]
	if !ok || n.UserID != userID {
		return repo.ErrNotFound
	}
	delete(f.notifications, id)
	return nil
}
