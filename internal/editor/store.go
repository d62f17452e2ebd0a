package editor

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"navidad-ai/common"
)

// Store 以会话 ID 为键保存会话，空闲超过 TTL 后自动回收
type Store struct {
	cache  *cache.Cache
	editor Editor
	opts   []SessionOption
}

// NewStore 创建会话存储，ttl <= 0 表示永不过期
func NewStore(editor Editor, ttl time.Duration, opts ...SessionOption) *Store {
	expiration := ttl
	cleanup := ttl / 2
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	} else if cleanup < time.Minute {
		cleanup = time.Minute
	}

	c := cache.New(expiration, cleanup)
	c.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			// 取消可能仍在进行中的请求
			s.Reset()
			common.WithField("session", id).Debug("Session evicted")
		}
	})

	return &Store{
		cache:  c,
		editor: editor,
		opts:   opts,
	}
}

// Create 创建新会话
func (st *Store) Create() *Session {
	s := NewSession(uuid.NewString(), st.editor, st.opts...)
	st.cache.Set(s.ID(), s, cache.DefaultExpiration)
	common.Debugf("Session %s created, %d active", s.ID(), st.Len())
	return s
}

// Get 查找会话并刷新其过期时间
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete 删除会话
func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}

// Len 返回未过期的会话数量。已过期但尚未被清理的会话不计入
func (st *Store) Len() int {
	return len(st.cache.Items())
}
