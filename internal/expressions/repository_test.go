package expressions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vapor/penny-bot/internal/storage"
)

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func TestBlobRepository_InsertAndRemove(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStorage()
	repo := NewBlobRepository(blobs)

	require.NoError(t, repo.Insert(ctx, Matches("vapor"), "u2"))
	require.NoError(t, repo.Insert(ctx, Matches("vapor"), "u1"))
	require.NoError(t, repo.Insert(ctx, Contains("leaf"), "u1"))
	require.NoError(t, repo.Insert(ctx, Contains("leaf"), "u1"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Expression][]string{
		Matches("vapor"): {"u1", "u2"},
		Contains("leaf"): {"u1"},
	}, all)

	data, err := blobs.Retrieve(ctx, BlobName)
	require.NoError(t, err)
	var stored map[string][]string
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, []string{"u1", "u2"}, stored["T-vapor"])
	assert.Equal(t, []string{"u1"}, stored["C-leaf"])

	require.NoError(t, repo.Remove(ctx, Contains("leaf"), "u1"))
	require.NoError(t, repo.Remove(ctx, Contains("missing"), "u1"))

	expressions, err := repo.ExpressionsOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Expression{Matches("vapor")}, expressions)
}

func TestBlobRepository_LoadsExistingData(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemoryStorage()
	require.NoError(t, blobs.Store(ctx, BlobName, []byte(`{"T-swift nio":["u1"],"C-fluent":["u2","u3"],"bogus":["u4"]}`)))

	repo := NewBlobRepository(blobs)
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)

	assert.Len(t, all, 2)
	assert.Equal(t, []string{"u1"}, all[Matches("swift nio")])
	assert.Equal(t, []string{"u2", "u3"}, all[Contains("fluent")])
}

func TestBlobRepository_RetrieveFails(t *testing.T) {
	ctx := context.Background()
	mockStorage := &MockStorage{}
	mockStorage.On("Retrieve", ctx, BlobName).Return(nil, errors.New("network down"))

	repo := NewBlobRepository(mockStorage)
	_, err := repo.GetAll(ctx)
	assert.Error(t, err)
	mockStorage.AssertExpectations(t)
}

func TestBlobRepository_StoreFails(t *testing.T) {
	ctx := context.Background()
	mockStorage := &MockStorage{}
	mockStorage.On("Retrieve", ctx, BlobName).Return(nil, fmt.Errorf("%w: %s", storage.ErrNotFound, BlobName))
	mockStorage.On("Store", ctx, BlobName, mock.Anything).Return(errors.New("quota exceeded"))

	repo := NewBlobRepository(mockStorage)
	err := repo.Insert(ctx, Matches("vapor"), "u1")
	assert.Error(t, err)
	mockStorage.AssertNumberOfCalls(t, "Retrieve", 1)
}

func TestBlobRepository_StoreFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	mockStorage := &MockStorage{}
	mockStorage.On("Retrieve", ctx, BlobName).Return(nil, fmt.Errorf("%w: %s", storage.ErrNotFound, BlobName))
	mockStorage.On("Store", ctx, BlobName, mock.Anything).Return(nil).Once()
	mockStorage.On("Store", ctx, BlobName, mock.Anything).Return(errors.New("quota exceeded"))

	repo := NewBlobRepository(mockStorage)
	require.NoError(t, repo.Insert(ctx, Matches("vapor"), "u1"))

	assert.Error(t, repo.Insert(ctx, Contains("leaf"), "u1"))
	assert.Error(t, repo.Insert(ctx, Matches("vapor"), "u2"))
	assert.Error(t, repo.Remove(ctx, Matches("vapor"), "u1"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Expression][]string{Matches("vapor"): {"u1"}}, all)

	pings, err := NewMatcher(repo).UsersToPing(ctx, "leaf and vapor")
	require.NoError(t, err)
	assert.Equal(t, []Ping{{UserID: "u1", Expressions: []Expression{Matches("vapor")}}}, pings)
}

func TestMatcher_UsersToPing(t *testing.T) {
	ctx := context.Background()
	repo := NewBlobRepository(storage.NewMemoryStorage())
	require.NoError(t, repo.Insert(ctx, Matches("fluent"), "u1"))
	require.NoError(t, repo.Insert(ctx, Contains("postgres"), "u1"))
	require.NoError(t, repo.Insert(ctx, Contains("postgres"), "u2"))
	require.NoError(t, repo.Insert(ctx, Matches("leaf"), "u3"))
	require.NoError(t, repo.Insert(ctx, Matches("fluent"), "author"))

	matcher := NewMatcher(repo)
	pings, err := matcher.UsersToPing(ctx, "Fluent with PostgresNIO is great", "author")
	require.NoError(t, err)

	assert.Equal(t, []Ping{
		{UserID: "u1", Expressions: []Expression{Contains("postgres"), Matches("fluent")}},
		{UserID: "u2", Expressions: []Expression{Contains("postgres")}},
	}, pings)
}

func TestMatcher_EmptyText(t *testing.T) {
	matcher := NewMatcher(NewBlobRepository(&MockStorage{}))

	pings, err := matcher.UsersToPing(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, pings)
}
