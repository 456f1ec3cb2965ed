package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"listenlab/internal/domain"
)

// ContentLoader fetches listening content from a backing store (e.g. Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, contentID string) (domain.Content, error)
}

// ContentRepository caches content in Redis and falls back to a loader on
// cache miss. Questions are stored as a hash, one JSON field per question
// plus a reserved field preserving their order:
//
//	HSET content:{contentID}:questions {questionID} {question JSON}
//	HSET content:{contentID}:questions __order    {JSON array of IDs}
//
// and the content header (name, url, transcript, ...) as:
//
//	SET content:{contentID}:meta {content JSON without questions}
const orderField = "__order"

type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, contentID string) (domain.Content, error) {
	if content, ok := r.fromCache(ctx, contentID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(contentID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.fromCache(ctx, contentID); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, contentID)
		if err != nil {
			return domain.Content{}, err
		}

		r.fill(ctx, content)
		return content, nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	return result.(domain.Content), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, contentID string) (domain.Content, bool) {
	fields, err := r.client.HGetAll(ctx, r.questionsKey(contentID)).Result()
	if err != nil || len(fields) == 0 {
		return domain.Content{}, false
	}

	var content domain.Content
	if raw, err := r.client.Get(ctx, r.metaKey(contentID)).Bytes(); err == nil {
		_ = json.Unmarshal(raw, &content)
	}
	content.ID = contentID

	var order []string
	if err := json.Unmarshal([]byte(fields[orderField]), &order); err != nil {
		return domain.Content{}, false
	}

	questions := make([]domain.Question, 0, len(order))
	for _, id := range order {
		var q domain.Question
		if err := json.Unmarshal([]byte(fields[id]), &q); err != nil {
			return domain.Content{}, false
		}
		questions = append(questions, q)
	}
	content.Questions = questions
	return content, true
}

func (r *ContentRepository) fill(ctx context.Context, content domain.Content) {
	questionsKey := r.questionsKey(content.ID)
	metaKey := r.metaKey(content.ID)
	ttl := r.ttlWithJitter()

	header := content
	header.Questions = nil
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return
	}

	order := make([]string, 0, len(content.Questions))
	for _, q := range content.Questions {
		order = append(order, q.ID)
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, metaKey, headerJSON, ttl)
	pipe.HSet(ctx, questionsKey, orderField, orderJSON)
	for _, q := range content.Questions {
		data, err := json.Marshal(q)
		if err != nil {
			continue
		}
		pipe.HSet(ctx, questionsKey, q.ID, data)
	}
	if ttl > 0 {
		pipe.Expire(ctx, questionsKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *ContentRepository) questionsKey(contentID string) string {
	return "content:" + contentID + ":questions"
}

func (r *ContentRepository) metaKey(contentID string) string {
	return "content:" + contentID + ":meta"
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
