package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	RoomID  int
	ToAll   bool
	Channel string
	Payload any
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (that *recordingBroadcaster) ToRoom(roomID int, channel string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = append(that.messages, sentMessage{RoomID: roomID, Channel: channel, Payload: payload})
}

func (that *recordingBroadcaster) ToAll(channel string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = append(that.messages, sentMessage{ToAll: true, Channel: channel, Payload: payload})
}

func (that *recordingBroadcaster) sent() []sentMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]sentMessage(nil), that.messages...)
}

type fakeViewer struct {
	id     string
	joined []int
	sent   []sentMessage
}

func (that *fakeViewer) ConnID() string {
	return that.id
}

func (that *fakeViewer) Join(roomID int) {
	that.joined = append(that.joined, roomID)
}

func (that *fakeViewer) Viewing(roomID int) bool {
	return len(that.joined) > 0 && that.joined[len(that.joined)-1] == roomID
}

func (that *fakeViewer) Send(channel string, payload any) {
	that.sent = append(that.sent, sentMessage{Channel: channel, Payload: payload})
}

type recordingPersister struct {
	mu      sync.Mutex
	saved   []*entity.Room
	deleted []int
}

func (that *recordingPersister) Save(room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.saved = append(that.saved, room)
}

func (that *recordingPersister) Delete(id int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.deleted = append(that.deleted, id)
}

type mockRoomStore struct {
	mock.Mock
}

func (that *mockRoomStore) NextID(ctx context.Context) (int, error) {
	args := that.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (that *mockRoomStore) List(ctx context.Context) ([]*entity.Room, error) {
	args := that.Called(ctx)
	rooms, _ := args.Get(0).([]*entity.Room)
	return rooms, args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (that *mockAccounts) Create(ctx context.Context, account *entity.Account) error {
	args := that.Called(ctx, account)
	return args.Error(0)
}

func (that *mockAccounts) FindByName(ctx context.Context, name string) (*entity.Account, error) {
	args := that.Called(ctx, name)
	account, _ := args.Get(0).(*entity.Account)
	return account, args.Error(1)
}

func (that *mockAccounts) GetByID(ctx context.Context, id int) (*entity.Account, error) {
	args := that.Called(ctx, id)
	account, _ := args.Get(0).(*entity.Account)
	return account, args.Error(1)
}

func (that *mockAccounts) DisplayName(ctx context.Context, id int) (string, error) {
	args := that.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (that *mockAccounts) UpdateRoom(ctx context.Context, id, roomID int) error {
	args := that.Called(ctx, id, roomID)
	return args.Error(0)
}

// newDirectory returns a directory preloaded with rooms and the persister recording its writes.
func newDirectory(t *testing.T, rooms ...*entity.Room) (*RoomDirectory, *mockRoomStore, *recordingPersister) {
	t.Helper()

	store := &mockRoomStore{}
	store.On("List", mock.Anything).Return(rooms, nil).Once()

	persister := &recordingPersister{}
	directory := NewRoomDirectory(discardLogger(), store, persister)
	require.NoError(t, directory.Load(context.Background()))

	return directory, store, persister
}
