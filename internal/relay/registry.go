package relay

import (
	"sync"

	"github.com/dep2p/go-peerproxy/pkg/lib/log"
)

var registryLogger = log.Logger("relay/registry")

// Registry 对端注册表
//
// 维护身份 → 活跃会话集合的映射。不变式：注册表中出现的身份
// 至少拥有一条活跃会话；会话集合清空的瞬间整个条目被移除，
// 不会残留空集合条目。
//
// 同时维护身份的注册顺序，供默认选择策略做确定性遍历。
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
	order    []string
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register 将会话登记到身份名下
//
// 身份首次出现时创建会话集合；同一身份的会话数没有上限。
func (r *Registry) Register(identity string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[identity] = set
		r.order = append(r.order, identity)
	}
	set[s] = struct{}{}
}

// Unregister 从身份名下移除会话
//
// 幂等：移除不存在的会话是空操作。返回该身份是否因此从
// 注册表中完全消失（调用方据此触发待处理请求清理）。
func (r *Registry) Unregister(identity string, s *Session) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[identity]
	if !ok {
		return false
	}
	if _, ok := set[s]; !ok {
		return false
	}

	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, identity)
		r.removeFromOrder(identity)
		return true
	}
	return false
}

// Contains 判断身份是否在线
func (r *Registry) Contains(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[identity]
	return ok
}

// Identities 返回当前所有在线身份（按注册顺序）
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Size 返回在线身份数
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// SessionCount 返回所有身份的会话总数
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.sessions {
		n += len(set)
	}
	return n
}

// Fanout 向身份名下的每条活跃会话投递负载
//
// exclude 非空时跳过该会话（请求者的发起会话不应收到自己
// 触发的 fetch）。单条会话发送失败不影响其余兄弟会话的投递；
// 失败的会话被就地剪除并关闭（自愈）。身份不存在时静默返回
// 零值，是否把"对端未知"上报给请求方由调用者决定。
//
// 返回成功投递数、失败剪除数，以及该身份是否因剪除而从
// 注册表中完全消失（调用方据此触发待处理请求清理，与正常
// 断开走同一条清理路径）。
func (r *Registry) Fanout(identity string, payload []byte, exclude *Session) (delivered, pruned int, vanished bool) {
	r.mu.RLock()
	set, ok := r.sessions[identity]
	if !ok {
		r.mu.RUnlock()
		return 0, 0, false
	}
	targets := make([]*Session, 0, len(set))
	for s := range set {
		if s == exclude {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	// 发送在锁外进行：慢会话不应阻塞注册表的其他操作
	for _, s := range targets {
		if err := s.SendRaw(payload); err != nil {
			registryLogger.Warn("扇出发送失败，剪除死会话",
				"identity", log.TruncateID(identity, 16),
				"session", log.TruncateID(s.ID(), 8),
				"error", err)
			s.Close()
			if r.Unregister(identity, s) {
				vanished = true
			}
			pruned++
			continue
		}
		delivered++
	}
	return delivered, pruned, vanished
}

// removeFromOrder 从注册顺序中移除身份（须持有写锁）
func (r *Registry) removeFromOrder(identity string) {
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
