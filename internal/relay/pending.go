package relay

import (
	"sync"
	"time"
)

// PendingRequest 待处理请求表条目
type PendingRequest struct {
	// RequestID 关联 ID
	RequestID string

	// Requester 请求者身份
	Requester string

	// Executor 执行者身份；选定前为空
	Executor string

	// Kind 请求类型: "static" 或 "stream"
	Kind string

	// CreatedAt 条目创建时间，供可选的 TTL 清扫使用
	CreatedAt time.Time
}

// PendingTable 待处理请求表
//
// 关联 ID → 请求记录。条目只在两种情况下销毁：
//   - 请求者或执行者身份完全断开（PurgeIdentity）
//   - 启用了 TTL 清扫且条目超龄（Sweep）
//
// 终态响应默认不删除条目，与历史行为保持兼容；
// 不启用 TTL 时表会随未应答请求无界增长，直到对端断开。
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*PendingRequest
}

// NewPendingTable 创建待处理请求表
func NewPendingTable() *PendingTable {
	return &PendingTable{
		entries: make(map[string]*PendingRequest),
	}
}

// Create 插入条目（执行者未定）
//
// 同一关联 ID 重复创建时覆盖旧条目。
func (t *PendingTable) Create(requestID, requester, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[requestID] = &PendingRequest{
		RequestID: requestID,
		Requester: requester,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

// AssignExecutor 在已有条目上登记执行者
//
// 条目不存在时返回 false。
func (t *PendingTable) AssignExecutor(requestID, executor string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[requestID]
	if !ok {
		return false
	}
	entry.Executor = executor
	return true
}

// Lookup 按关联 ID 查找条目
//
// 返回条目的副本，避免调用方在表锁之外观察到并发修改。
func (t *PendingTable) Lookup(requestID string) (PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[requestID]
	if !ok {
		return PendingRequest{}, false
	}
	return *entry, true
}

// PurgeIdentity 移除请求者或执行者为该身份的所有条目
//
// 在身份的最后一条会话断开时调用恰好一次。返回移除数。
func (t *PendingTable) PurgeIdentity(identity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id, entry := range t.entries {
		if entry.Requester == identity || entry.Executor == identity {
			delete(t.entries, id)
			n++
		}
	}
	return n
}

// Sweep 移除创建时间早于 cutoff 的条目，返回移除数
func (t *PendingTable) Sweep(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id, entry := range t.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(t.entries, id)
			n++
		}
	}
	return n
}

// Len 返回当前条目数
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Snapshot 返回所有条目的副本，供诊断端点使用
func (t *PendingTable) Snapshot() []PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PendingRequest, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, *entry)
	}
	return out
}
