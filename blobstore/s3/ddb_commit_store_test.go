package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB is an in-memory commit table.
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	return item["base_uri"].(*types.AttributeValueMemberS).Value + ":" +
		item["version"].(*types.AttributeValueMemberN).Value
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey(params.Item)
	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}

	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	sort.Slice(items, func(i, j int) bool { return version(items[i]) > version(items[j]) })

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[itemKey(params.Key)]; ok {
		return &dynamodb.GetItemOutput{Item: item}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func readCurrent(t *testing.T, store blobstore.BlobStore) string {
	t.Helper()
	data, err := blobstore.Get(context.Background(), store, CurrentName)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newFakeDDB(), "nerd-commits", "s3://bucket/a/")

	require.NoError(t, store.Put(ctx, CurrentName, []byte("MANIFEST-000001.bin")))
	assert.Equal(t, "MANIFEST-000001.bin", readCurrent(t, store))

	n, err := store.Commits(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestDDBCommitStore_LatestWins(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newFakeDDB(), "nerd-commits", "s3://bucket/a/")

	for i := 1; i <= 11; i++ {
		require.NoError(t, store.Put(ctx, CurrentName, []byte(fmt.Sprintf("MANIFEST-%06d.bin", i))))
	}

	// Versions sort numerically, not lexically.
	assert.Equal(t, "MANIFEST-000011.bin", readCurrent(t, store))
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newFakeDDB(), "nerd-commits", "s3://bucket/a/")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 8 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, CurrentName, []byte(fmt.Sprintf("MANIFEST-%06d.bin", id)))
			if err != nil && !errors.Is(err, ErrConcurrentModification) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	n, err := store.Commits(ctx)
	require.NoError(t, err)
	assert.Positive(t, successes)
	assert.Equal(t, uint64(successes), n)
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newFakeDDB(), "nerd-commits", "s3://bucket/a/")

	_, err := store.Open(context.Background(), CurrentName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	a := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "nerd-commits", "s3://bucket/a/")
	b := NewDDBCommitStore(blobstore.NewMemoryStore(), ddb, "nerd-commits", "s3://bucket/b/")

	require.NoError(t, a.Put(ctx, CurrentName, []byte("MANIFEST-000001.bin")))
	require.NoError(t, b.Put(ctx, CurrentName, []byte("MANIFEST-000007.bin")))

	assert.Equal(t, "MANIFEST-000001.bin", readCurrent(t, a))
	assert.Equal(t, "MANIFEST-000007.bin", readCurrent(t, b))
}

func TestDDBCommitStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	inner := blobstore.NewMemoryStore()
	store := NewDDBCommitStore(inner, newFakeDDB(), "nerd-commits", "s3://bucket/a/")

	require.NoError(t, store.Put(ctx, "embeddings-000001.f32", []byte{1, 2, 3, 4}))

	data, err := blobstore.Get(ctx, inner, "embeddings-000001.f32")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	names, err := store.List(ctx, "embeddings-")
	require.NoError(t, err)
	assert.Equal(t, []string{"embeddings-000001.f32"}, names)
}
